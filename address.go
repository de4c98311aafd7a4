// Package ergot implements the addressing, header, and error-taxonomy
// primitives shared by ergot's socket substrate, router, and interface
// profiles: an in-process network stack letting independent components
// address, discover, and exchange typed messages across process, serial,
// and TCP boundaries as if they shared one address space.
package ergot

import "fmt"

// Address is the triple identifying a socket anywhere in an ergot network.
//
// NetworkID 0 means "local network". NodeID 0 means "this node". Within a
// point-to-point edge link, node id 1 is the router/controller and node id
// 2 is the edge/target. PortID 0 means "any port matching key/name",
// resolved at dispatch time; PortID 255 means "broadcast on this network".
type Address struct {
	NetworkID uint16
	NodeID    uint8
	PortID    uint8
}

// Well-known node ids on a point-to-point edge link.
const (
	NodeIDController uint8 = 1
	NodeIDEdge       uint8 = 2
)

// Reserved port ids. PortAny and PortBroadcast are never handed out by the
// port allocator; they are only meaningful as destinations at send time.
const (
	PortAny       uint8 = 0
	PortBroadcast uint8 = 255
)

// IsAny reports whether a is the local-bypass wildcard (0,0,*).
func (a Address) IsAny() bool {
	return a.NetworkID == 0 && a.NodeID == 0
}

// IsLocalNetwork reports whether a refers to the local network.
func (a Address) IsLocalNetwork() bool { return a.NetworkID == 0 }

// IsAnyPort reports whether a targets any-cast resolution.
func (a Address) IsAnyPort() bool { return a.PortID == PortAny }

// IsBroadcastPort reports whether a targets broadcast delivery.
func (a Address) IsBroadcastPort() bool { return a.PortID == PortBroadcast }

func (a Address) String() string {
	return fmt.Sprintf("%d.%d:%d", a.NetworkID, a.NodeID, a.PortID)
}

// LocalBypass reports whether src and dst both satisfy the (0,0,*) wildcard
// form, in which case dispatch never consults the active profile.
func LocalBypass(src, dst Address) bool {
	return src.IsAny() && dst.IsAny()
}
