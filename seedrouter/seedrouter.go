// Package seedrouter implements the client and server halves of ergot's
// network-id assignment protocol: a freshly joined node has no network
// id of its own yet, so it any-casts a request to whichever node on the
// link is acting as seed router and gets one handed back, renewable
// later under the same token. well_known.rs has no counterpart to this
// protocol at all; it exists only in spec.md, so this package has no
// teacher file to adapt and is grounded instead on the
// request/assignment/refresh wire types ergot/wellknown defines for it.
// Unlike iface.RouterProfile's link table, which reuses the lowest free
// id, a Server hands ids out monotonically and never reuses one (see
// DESIGN.md).
package seedrouter

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/socket"
	"github.com/ergotnet/ergot/wellknown"
)

// Server hands out network ids to requesting nodes and lets them reclaim
// the same id later by presenting the token it was issued with. It never
// frees an id on its own: reusing a lapsed id immediately risks handing
// it to a second node while the first is merely mid-reconnect, so ids
// are only ever handed out once, monotonically.
type Server struct {
	stack *netstack.NetStack
	req   *socket.Owned[wellknown.SeedRouterRequest]
	ref   *socket.Owned[wellknown.SeedRouterRefresh]

	mu     sync.Mutex
	leases map[uint16]uuid.UUID
	next   uint16
}

// NewServer attaches the request and refresh responders to stack. next is
// the first network id the server will hand out; callers typically
// reserve 0 for "unassigned" and start next at 1.
func NewServer(stack *netstack.NetStack, next uint16) (*Server, error) {
	req := socket.NewOwned[wellknown.SeedRouterRequest](wellknown.KeySeedRouterRequest, ergot.FrameKindEndpointRequest, 4, unmarshalJSON[wellknown.SeedRouterRequest], true)
	req.Header().Name = "seed-router-request"
	if _, err := stack.Attach(req.Header()); err != nil {
		return nil, err
	}
	ref := socket.NewOwned[wellknown.SeedRouterRefresh](wellknown.KeySeedRouterRefresh, ergot.FrameKindEndpointRequest, 4, unmarshalJSON[wellknown.SeedRouterRefresh], true)
	ref.Header().Name = "seed-router-refresh"
	if _, err := stack.Attach(ref.Header()); err != nil {
		stack.Detach(req.Header())
		return nil, err
	}
	return &Server{
		stack:  stack,
		req:    req,
		ref:    ref,
		leases: make(map[uint16]uuid.UUID),
		next:   next,
	}, nil
}

// ServeRequest answers one seed-router-request, assigning a fresh network
// id and token, blocking until one arrives or ctx ends.
func (s *Server) ServeRequest(ctx context.Context) error {
	env, err := s.req.Recv(ctx)
	if err != nil {
		return err
	}
	if env.Err != nil {
		return env.Err
	}

	s.mu.Lock()
	netID := s.next
	s.next++
	token := uuid.New()
	s.leases[netID] = token
	s.mu.Unlock()

	hdr := env.Hdr
	hdr.Src, hdr.Dst = hdr.Dst, hdr.Src
	hdr.Kind = ergot.FrameKindEndpointResponse
	hdr.AnyAll = nil
	assignment := wellknown.SeedRouterAssignment{NetID: netID, Token: token}
	return s.stack.SendTy(hdr, assignment, marshalJSON)
}

// ServeRefresh answers one seed-router-refresh, blocking until one arrives
// or ctx ends. A refresh whose token does not match the lease on file, or
// that names an unknown network id, fails closed with a protocol error
// reported to the requester rather than silently reassigning the id.
func (s *Server) ServeRefresh(ctx context.Context) error {
	env, err := s.ref.Recv(ctx)
	if err != nil {
		return err
	}
	if env.Err != nil {
		return env.Err
	}

	hdr := env.Hdr
	hdr.Src, hdr.Dst = hdr.Dst, hdr.Src
	hdr.Kind = ergot.FrameKindEndpointResponse
	hdr.AnyAll = nil

	s.mu.Lock()
	have, ok := s.leases[env.Val.NetID]
	s.mu.Unlock()
	if !ok {
		return s.stack.SendErr(hdr, errUnknownNetID)
	}
	if have != env.Val.Token {
		return s.stack.SendErr(hdr, errTokenMismatch)
	}

	assignment := wellknown.SeedRouterAssignment{NetID: env.Val.NetID, Token: have}
	return s.stack.SendTy(hdr, assignment, marshalJSON)
}

// Close detaches both responders from their stack.
func (s *Server) Close() {
	s.stack.Detach(s.req.Header())
	s.stack.Detach(s.ref.Header())
}

// defaultTTL bounds a seed-router request to a small number of hops --
// these are control-plane messages exchanged between directly or
// near-directly connected nodes.
const defaultTTL = 8

// RequestNetID asks target's seed router for a freshly assigned network
// id, blocking for its response or ctx ending.
func RequestNetID(ctx context.Context, stack *netstack.NetStack, target ergot.Address) (wellknown.SeedRouterAssignment, error) {
	resp := socket.NewOwned[wellknown.SeedRouterAssignment](wellknown.KeySeedRouterRequest, ergot.FrameKindEndpointResponse, 1, unmarshalJSON[wellknown.SeedRouterAssignment], false)
	port, err := stack.Attach(resp.Header())
	if err != nil {
		return wellknown.SeedRouterAssignment{}, err
	}
	defer stack.Detach(resp.Header())

	hdr := ergot.Header{
		Src:    ergot.Address{PortID: port},
		Dst:    ergot.Address{NetworkID: target.NetworkID, NodeID: target.NodeID, PortID: ergot.PortAny},
		AnyAll: &ergot.AnyAllAppendix{Key: wellknown.KeySeedRouterRequest},
		Kind:   ergot.FrameKindEndpointRequest,
		TTL:    defaultTTL,
	}
	if err := stack.SendTy(hdr, wellknown.SeedRouterRequest{}, marshalJSON); err != nil {
		return wellknown.SeedRouterAssignment{}, err
	}
	env, err := resp.Recv(ctx)
	if err != nil {
		return wellknown.SeedRouterAssignment{}, err
	}
	if env.Err != nil {
		return wellknown.SeedRouterAssignment{}, env.Err
	}
	return env.Val, nil
}

// RefreshNetID rebinds a previously assigned network id under the same
// token, blocking for target's response or ctx ending.
func RefreshNetID(ctx context.Context, stack *netstack.NetStack, target ergot.Address, lease wellknown.SeedRouterAssignment) (wellknown.SeedRouterAssignment, error) {
	resp := socket.NewOwned[wellknown.SeedRouterAssignment](wellknown.KeySeedRouterRefresh, ergot.FrameKindEndpointResponse, 1, unmarshalJSON[wellknown.SeedRouterAssignment], false)
	port, err := stack.Attach(resp.Header())
	if err != nil {
		return wellknown.SeedRouterAssignment{}, err
	}
	defer stack.Detach(resp.Header())

	hdr := ergot.Header{
		Src:    ergot.Address{PortID: port},
		Dst:    ergot.Address{NetworkID: target.NetworkID, NodeID: target.NodeID, PortID: ergot.PortAny},
		AnyAll: &ergot.AnyAllAppendix{Key: wellknown.KeySeedRouterRefresh},
		Kind:   ergot.FrameKindEndpointRequest,
		TTL:    defaultTTL,
	}
	refresh := wellknown.SeedRouterRefresh{NetID: lease.NetID, Token: lease.Token}
	if err := stack.SendTy(hdr, refresh, marshalJSON); err != nil {
		return wellknown.SeedRouterAssignment{}, err
	}
	env, err := resp.Recv(ctx)
	if err != nil {
		return wellknown.SeedRouterAssignment{}, err
	}
	if env.Err != nil {
		return wellknown.SeedRouterAssignment{}, env.Err
	}
	return env.Val, nil
}
