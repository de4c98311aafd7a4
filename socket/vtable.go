// Package socket implements ergot's socket storage substrate: the types a
// NetStack dispatches frames into, independent of how each socket chooses
// to hold them.
//
// A NetStack never knows whether a given port is backed by a bounded-queue
// Owned request/response socket, a ring-backed Borrow socket, or a
// best-effort broadcast listener. It only ever calls through a VTable,
// the same indirection lneto's ethernet/ipv4 layers use to let
// higher-level protocols plug into a frame source without the source
// needing their concrete type.
package socket

import "github.com/ergotnet/ergot"

// VTable is the dispatch surface a socket exposes to its NetStack. Each
// field is nil when the socket does not support that delivery path --
// notably, Owned sockets never set RecvBorrowed, since accepting a
// borrowed value would force them to either copy it or hold a reference
// past the sender's stack frame.
type VTable struct {
	// RecvOwned delivers a value the sender is handing off outright: the
	// socket may retain val without copying it.
	RecvOwned func(val any, hdr ergot.Header) error
	// RecvBorrowed delivers a value the sender only lent for the
	// duration of the call. A socket that wants to keep it must copy or
	// serialize it before returning.
	RecvBorrowed func(val any, hdr ergot.Header) error
	// RecvRaw delivers an already-serialized frame body, as received
	// from a remote interface. Every socket must support this path, since
	// it is the only one available to frames that crossed the wire.
	RecvRaw func(raw []byte, hdr ergot.Header) error
	// RecvErr reports a PROTOCOL_ERROR frame addressed back to this
	// socket. Implementations should treat delivery as best-effort: a
	// socket with no room for the error simply drops it.
	RecvErr func(hdr ergot.Header, err error)
}

// Header is the metadata a NetStack keeps about an attached socket: its
// allocated port, the Key/FrameKind it answers to, and its dispatch
// vtable. It is the Go analogue of ergot-base's intrusive SocketHeader,
// minus the linked-list node -- NetStack keeps sockets in a map instead.
type Header struct {
	Port uint8
	Kind ergot.FrameKind
	Key  ergot.Key
	Nash *ergot.NameHash
	// Discoverable marks a socket as a candidate for any-cast dispatch
	// (dst.port_id == 0) and broadcast fan-out. Two sockets may share a
	// Key only when at most one of them is Discoverable -- a server's
	// request responder is discoverable so any-cast can find it, while
	// an ephemeral client response listener sharing the same Key is not,
	// so it never itself becomes an any-cast/broadcast candidate.
	Discoverable bool
	// Name is the optional human-readable label a socket was registered
	// under, surfaced by ergot/wellknown's socket/query response. It plays
	// no role in dispatch -- only Key/Nash/Discoverable do.
	Name   string
	VTable *VTable
}

// MatchesKey reports whether h answers any-cast or broadcast sends
// carrying the given key, optionally disambiguated by name hash. A
// non-discoverable socket never matches -- it may still share its Key
// with a discoverable socket (an ephemeral response listener alongside
// its server's request responder, say) without becoming an accidental
// any-cast/broadcast candidate.
func (h *Header) MatchesKey(key ergot.Key, nash *ergot.NameHash) bool {
	if !h.Discoverable {
		return false
	}
	if h.Key != key {
		return false
	}
	if nash == nil {
		return true
	}
	return h.Nash != nil && *h.Nash == *nash
}
