package wellknown

import (
	"context"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/socket"
)

// PingServer answers ErgotPingEndpoint requests by echoing the request
// value back to the requester under the same sequence number, the Go
// rendition of well_known.rs's ErgotPingEndpoint server half.
type PingServer struct {
	stack *netstack.NetStack
	req   *socket.Owned[uint32]
}

// NewPingServer attaches a ping responder to stack.
func NewPingServer(stack *netstack.NetStack) (*PingServer, error) {
	req := socket.NewOwned[uint32](KeyPing, ergot.FrameKindEndpointRequest, 8, unmarshalUint32, true)
	req.Header().Name = "ping"
	if _, err := stack.Attach(req.Header()); err != nil {
		return nil, err
	}
	return &PingServer{stack: stack, req: req}, nil
}

// Serve answers one ping request, blocking until one arrives or ctx ends.
func (p *PingServer) Serve(ctx context.Context) error {
	env, err := p.req.Recv(ctx)
	if err != nil {
		return err
	}
	if env.Err != nil {
		return env.Err
	}
	resp := env.Hdr
	resp.Src, resp.Dst = resp.Dst, resp.Src
	resp.Kind = ergot.FrameKindEndpointResponse
	resp.AnyAll = nil
	return p.stack.SendTy(resp, env.Val, marshalUint32)
}

// Close detaches the ping responder from its stack.
func (p *PingServer) Close() { p.stack.Detach(p.req.Header()) }

// Ping issues one ping request to target and blocks for its response or
// ctx ending. target's PortID is ignored -- the ping endpoint is always
// resolved by any-cast key, following spec.md's ping round-trip example
// of dst=(network,node,0).
func Ping(ctx context.Context, stack *netstack.NetStack, target ergot.Address, val uint32) (uint32, error) {
	resp := socket.NewOwned[uint32](KeyPing, ergot.FrameKindEndpointResponse, 1, unmarshalUint32, false)
	port, err := stack.Attach(resp.Header())
	if err != nil {
		return 0, err
	}
	defer stack.Detach(resp.Header())

	hdr := ergot.Header{
		Src:    ergot.Address{PortID: port},
		Dst:    ergot.Address{NetworkID: target.NetworkID, NodeID: target.NodeID, PortID: ergot.PortAny},
		AnyAll: &ergot.AnyAllAppendix{Key: KeyPing},
		Kind:   ergot.FrameKindEndpointRequest,
		TTL:    defaultTTL,
	}
	if err := stack.SendTy(hdr, val, marshalUint32); err != nil {
		return 0, err
	}
	env, err := resp.Recv(ctx)
	if err != nil {
		return 0, err
	}
	if env.Err != nil {
		return 0, env.Err
	}
	return env.Val, nil
}
