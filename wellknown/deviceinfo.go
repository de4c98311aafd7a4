package wellknown

import (
	"context"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/socket"
)

// PublishDeviceInfo broadcasts info on the local network's device-info
// topic, the Go rendition of well_known.rs's ErgotDeviceInfoTopic publish
// side.
func PublishDeviceInfo(stack *netstack.NetStack, info DeviceInfo) error {
	hdr := ergot.Header{
		Dst:    ergot.Address{PortID: ergot.PortBroadcast},
		AnyAll: &ergot.AnyAllAppendix{Key: KeyDeviceInfo},
		Kind:   ergot.FrameKindTopicMessage,
		TTL:    defaultTTL,
	}
	return stack.SendTy(hdr, info, marshalJSON)
}

// DeviceInfoListener subscribes to the device-info broadcast topic.
type DeviceInfoListener struct {
	stack *netstack.NetStack
	sock  *socket.Owned[DeviceInfo]
}

// NewDeviceInfoListener attaches a broadcast listener for device-info
// announcements.
func NewDeviceInfoListener(stack *netstack.NetStack) *DeviceInfoListener {
	sock := socket.NewOwned[DeviceInfo](KeyDeviceInfo, ergot.FrameKindTopicMessage, 16, unmarshalJSON[DeviceInfo], true)
	sock.Header().Name = "device-info"
	stack.AttachBroadcast(sock.Header())
	return &DeviceInfoListener{stack: stack, sock: sock}
}

// Recv blocks for the next device-info announcement.
func (d *DeviceInfoListener) Recv(ctx context.Context) (DeviceInfo, error) {
	env, err := d.sock.Recv(ctx)
	if err != nil {
		return DeviceInfo{}, err
	}
	return env.Val, env.Err
}

// Close detaches the listener from its stack.
func (d *DeviceInfoListener) Close() { d.stack.Detach(d.sock.Header()) }

// Interrogate broadcasts a request that every listening node re-announce
// its device info, carrying the requester's address so a responder could
// reply directly instead of broadcasting if it chose to.
func Interrogate(stack *netstack.NetStack, from ergot.Address) error {
	hdr := ergot.Header{
		Dst:    ergot.Address{PortID: ergot.PortBroadcast},
		AnyAll: &ergot.AnyAllAppendix{Key: KeyDeviceInfoInterrogation},
		Kind:   ergot.FrameKindTopicMessage,
		TTL:    defaultTTL,
	}
	return stack.SendTy(hdr, from, marshalJSON)
}

// InterrogationListener subscribes to the interrogation topic, answering
// every interrogation by re-publishing info.
type InterrogationListener struct {
	stack *netstack.NetStack
	sock  *socket.Owned[ergot.Address]
	info  func() DeviceInfo
}

// NewInterrogationListener attaches a listener that republishes info()'s
// current value every time an interrogation arrives.
func NewInterrogationListener(stack *netstack.NetStack, info func() DeviceInfo) *InterrogationListener {
	sock := socket.NewOwned[ergot.Address](KeyDeviceInfoInterrogation, ergot.FrameKindTopicMessage, 4, unmarshalJSON[ergot.Address], true)
	sock.Header().Name = "device-info-interrogation"
	stack.AttachBroadcast(sock.Header())
	return &InterrogationListener{stack: stack, sock: sock, info: info}
}

// Serve answers one interrogation, blocking until one arrives or ctx ends.
func (l *InterrogationListener) Serve(ctx context.Context) error {
	env, err := l.sock.Recv(ctx)
	if err != nil {
		return err
	}
	if env.Err != nil {
		return env.Err
	}
	return PublishDeviceInfo(l.stack, l.info())
}

// Close detaches the listener from its stack.
func (l *InterrogationListener) Close() { l.stack.Detach(l.sock.Header()) }
