// Package netstack implements ergot's router: the single synchronization
// point every send passes through, whether it is user code addressing a
// local socket or an interface handing off a frame it just decoded off
// the wire.
//
// The design follows the teacher's StackAsync/StackIP pattern of a
// mutex-guarded struct built with Reset(cfg) error, rather than a
// constructor that can fail -- a NetStack is typically a long-lived value
// (package-level or embedded in a larger app struct) that gets configured
// once at startup.
package netstack

import (
	"sync"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/socket"
)

// Profile is implemented by an interface manager (Edge, Router, seed
// router client) to decide whether a frame should be forwarded across an
// interface instead of dispatched to a local socket. A NetStack with a
// nil Profile behaves as a fully local, single-node stack.
type Profile interface {
	// SendRaw offers a pre-serialized frame to the interface layer. It
	// returns ergot.ErrDestinationLocal when the frame is addressed to
	// this node, so NetStack dispatches it to a local socket instead; any
	// other error (such as ergot.ErrNoRouteToDest for an unreachable
	// destination) is returned to the sender.
	SendRaw(hdr ergot.Header, body []byte) error
}

// Metrics is the optional observability hook a NetStack reports dispatch
// outcomes to. A nil Metrics is valid and every call becomes a no-op;
// package ergot/metrics provides a Prometheus-backed implementation.
type Metrics interface {
	DispatchResult(result string)
	PortsInUse(n int)
}

// Config configures a NetStack. The zero Config is valid: no interface
// profile (the stack only ever dispatches locally) and no metrics.
type Config struct {
	Profile Profile
	Metrics Metrics
}

// NetStack is ergot's router.
type NetStack struct {
	mu sync.Mutex

	profile Profile
	metrics Metrics

	byPort    map[uint8]*socket.Header
	broadcast []*socket.Header

	pcacheBits  uint32
	pcacheStart uint8
	seqNo       uint16
}

// Reset (re)configures the stack, detaching every socket and discarding
// port allocator state. Safe to call on a zero NetStack to initialize it.
func (n *NetStack) Reset(cfg Config) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.profile = cfg.Profile
	n.metrics = cfg.Metrics
	n.byPort = make(map[uint8]*socket.Header)
	n.broadcast = nil
	n.pcacheBits = 0
	n.pcacheStart = 0
	n.seqNo = 0
	return nil
}

func (n *NetStack) nextSeq() uint16 {
	seq := n.seqNo
	n.seqNo++
	return seq
}

func (n *NetStack) reportResult(result string) {
	if n.metrics != nil {
		n.metrics.DispatchResult(result)
	}
}

// Attach registers a socket under a newly allocated unicast port, the Go
// analogue of ergot-base's try_attach_socket/attach_socket. It returns
// ergot.ErrNoSpace once all 254 usable ports (1..254; 0 and 255 are
// reserved) are in use.
func (n *NetStack) Attach(hdr *socket.Header) (uint8, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	port, ok := n.allocPort()
	if !ok {
		return 0, ergot.ErrNoSpace
	}
	hdr.Port = port
	n.byPort[port] = hdr
	if n.metrics != nil {
		n.metrics.PortsInUse(len(n.byPort))
	}
	return port, nil
}

// AttachBroadcast registers hdr as a listener on the broadcast port
// (ergot.PortBroadcast). Broadcast sockets are not unicast-addressable
// and do not consume a unicast port slot.
func (n *NetStack) AttachBroadcast(hdr *socket.Header) {
	n.mu.Lock()
	defer n.mu.Unlock()
	hdr.Port = ergot.PortBroadcast
	n.broadcast = append(n.broadcast, hdr)
}

// SocketInfo summarizes an attached socket for ergot/wellknown's
// socket/query response, deliberately excluding the VTable -- a query
// reply only ever needs to tell a caller what is there, never hand it a
// way to call into it directly.
type SocketInfo struct {
	Port      uint8
	Kind      ergot.FrameKind
	Key       ergot.Key
	Nash      *ergot.NameHash
	Name      string
	Broadcast bool
}

// Sockets returns a snapshot of every attached socket, unicast and
// broadcast alike.
func (n *NetStack) Sockets() []SocketInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]SocketInfo, 0, len(n.byPort)+len(n.broadcast))
	for _, s := range n.byPort {
		out = append(out, SocketInfo{Port: s.Port, Kind: s.Kind, Key: s.Key, Nash: s.Nash, Name: s.Name})
	}
	for _, s := range n.broadcast {
		out = append(out, SocketInfo{Port: s.Port, Kind: s.Kind, Key: s.Key, Nash: s.Nash, Name: s.Name, Broadcast: true})
	}
	return out
}

// Detach removes hdr from the stack, freeing its port if it held one.
func (n *NetStack) Detach(hdr *socket.Header) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if hdr.Port == ergot.PortBroadcast {
		for i, s := range n.broadcast {
			if s == hdr {
				n.broadcast = append(n.broadcast[:i], n.broadcast[i+1:]...)
				break
			}
		}
		return
	}
	delete(n.byPort, hdr.Port)
	n.freePort(hdr.Port)
	if n.metrics != nil {
		n.metrics.PortsInUse(len(n.byPort))
	}
}
