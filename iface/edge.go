package iface

import (
	"errors"
	"sync"

	"github.com/ergotnet/ergot"
)

// Well-known node ids on the edge side of a point-to-point link. The edge
// is always node 2; the controller at the other end is always node 1 --
// grounded on ergot-base's EdgeInterfaceInner, which hard-codes both.
const (
	edgeOwnNodeID   = ergot.NodeIDEdge
	edgeOtherNodeID = ergot.NodeIDController
)

// EdgeProfile implements netstack.Profile for the client side of a single
// point-to-point link: a serial connection to a controller, or a TCP
// dial to a router. It has no routing table, because it only ever has
// one possible next hop.
//
// An EdgeProfile starts inactive: Register must be called, normally once
// a transport has dialed or accepted a connection, before SendRaw will
// forward anything. Until a network id is assigned (SetNetID), every send
// fails with ergot.ErrNoRouteToDest -- the link exists but this stack does
// not yet have an address on it.
type EdgeProfile struct {
	mu    sync.Mutex
	sink  Sink
	netID uint16
}

// NewEdgeProfile constructs an inactive EdgeProfile.
func NewEdgeProfile() *EdgeProfile {
	return &EdgeProfile{}
}

// IsActive reports whether a sink has been registered.
func (e *EdgeProfile) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sink != nil
}

// Register attaches sink as the link's write side, resetting any
// previously assigned network id -- a freshly (re)dialed connection has
// not yet been told its address by the other end.
func (e *EdgeProfile) Register(sink Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
	e.netID = 0
}

// Deregister detaches and returns the active sink, or nil if none was
// registered. Callers typically do this when a link's receive worker
// observes the connection closing.
func (e *EdgeProfile) Deregister() Sink {
	e.mu.Lock()
	defer e.mu.Unlock()
	sink := e.sink
	e.sink = nil
	e.netID = 0
	return sink
}

// NetID returns the network id assigned to this edge and true, or
// (0, false) if none has been assigned yet.
func (e *EdgeProfile) NetID() (uint16, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.netID == 0 {
		return 0, false
	}
	return e.netID, true
}

// errCantAssignZero is returned by SetNetID when asked to assign the
// reserved "no network" id.
var errCantAssignZero = errors.New("ergot/iface: cannot assign network id 0")

// SetNetID records the network id the controller at the other end of the
// link assigned this edge, typically learned by answering a seed-router
// request. It fails if no sink is registered, or if id is the reserved
// zero value.
func (e *EdgeProfile) SetNetID(id uint16) error {
	if id == 0 {
		return errCantAssignZero
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sink == nil {
		return ergot.ErrNoRouteToDest
	}
	e.netID = id
	return nil
}

// SendRaw implements netstack.Profile. It rewrites hdr's addresses to be
// meaningful on the link before handing the frame to the sink, following
// ergot-base's EdgeInterfaceInner::common_send: decline unassigned or
// locally-destined frames, decrement ttl, fill in a local source address,
// and send broadcasts to the link's one possible peer.
func (e *EdgeProfile) SendRaw(hdr ergot.Header, body []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sink == nil || e.netID == 0 {
		return ergot.ErrNoRouteToDest
	}
	if hdr.Dst.NetworkID == e.netID && hdr.Dst.NodeID == edgeOwnNodeID {
		return ergot.ErrDestinationLocal
	}

	hdr = hdr.Clone()
	if err := hdr.DecrementTTL(); err != nil {
		return err
	}
	if hdr.Src.IsAny() {
		hdr.Src.NetworkID = e.netID
		hdr.Src.NodeID = edgeOwnNodeID
	}
	if hdr.Dst.IsBroadcastPort() {
		hdr.Dst.NetworkID = e.netID
		hdr.Dst.NodeID = edgeOtherNodeID
	}
	if hdr.RequiresAppendix() && hdr.AnyAll == nil {
		return ergot.ErrAnyPortMissingKey
	}

	if err := e.sink.Send(hdr, body); err != nil {
		return ergot.ErrInterfaceFull
	}
	return nil
}
