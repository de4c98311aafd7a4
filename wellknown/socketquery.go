package wellknown

import (
	"context"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/socket"
)

// SocketQueryServer answers SocketQuery requests with the stack's current
// socket table, the Go rendition of well_known.rs's ErgotSocketQueryEndpoint
// server half -- there is no Rust analogue of NetStack.Sockets to draw on
// directly, so the filtering logic below is new, grounded on the shape of
// SocketQuery/SocketQueryResponse already defined for this endpoint.
type SocketQueryServer struct {
	stack *netstack.NetStack
	req   *socket.Owned[SocketQuery]
}

// NewSocketQueryServer attaches a socket-query responder to stack.
func NewSocketQueryServer(stack *netstack.NetStack) (*SocketQueryServer, error) {
	req := socket.NewOwned[SocketQuery](KeySocketQuery, ergot.FrameKindEndpointRequest, 4, unmarshalJSON[SocketQuery], true)
	req.Header().Name = "socket-query"
	if _, err := stack.Attach(req.Header()); err != nil {
		return nil, err
	}
	return &SocketQueryServer{stack: stack, req: req}, nil
}

// Serve answers one socket-query request, blocking until one arrives or
// ctx ends.
func (s *SocketQueryServer) Serve(ctx context.Context) error {
	env, err := s.req.Recv(ctx)
	if err != nil {
		return err
	}
	if env.Err != nil {
		return env.Err
	}

	resp := SocketQueryResponse{}
	for _, info := range s.stack.Sockets() {
		if env.Val.Broadcast && !info.Broadcast {
			continue
		}
		if env.Val.Key != nil && ergot.Key(*env.Val.Key) != info.Key {
			continue
		}
		resp.Sockets = append(resp.Sockets, SocketQueryResult{
			Port:      info.Port,
			Kind:      uint8(info.Kind),
			Key:       [8]byte(info.Key),
			Name:      info.Name,
			Broadcast: info.Broadcast,
		})
	}

	hdr := env.Hdr
	hdr.Src, hdr.Dst = hdr.Dst, hdr.Src
	hdr.Kind = ergot.FrameKindEndpointResponse
	hdr.AnyAll = nil
	return s.stack.SendTy(hdr, resp, marshalJSON)
}

// Close detaches the responder from its stack.
func (s *SocketQueryServer) Close() { s.stack.Detach(s.req.Header()) }

// QuerySockets asks target's socket table, optionally filtered by query,
// and blocks for its response or ctx ending.
func QuerySockets(ctx context.Context, stack *netstack.NetStack, target ergot.Address, query SocketQuery) (SocketQueryResponse, error) {
	resp := socket.NewOwned[SocketQueryResponse](KeySocketQueryResponse, ergot.FrameKindEndpointResponse, 1, unmarshalJSON[SocketQueryResponse], false)
	port, err := stack.Attach(resp.Header())
	if err != nil {
		return SocketQueryResponse{}, err
	}
	defer stack.Detach(resp.Header())

	hdr := ergot.Header{
		Src:    ergot.Address{PortID: port},
		Dst:    ergot.Address{NetworkID: target.NetworkID, NodeID: target.NodeID, PortID: ergot.PortAny},
		AnyAll: &ergot.AnyAllAppendix{Key: KeySocketQuery},
		Kind:   ergot.FrameKindEndpointRequest,
		TTL:    defaultTTL,
	}
	if err := stack.SendTy(hdr, query, marshalJSON); err != nil {
		return SocketQueryResponse{}, err
	}
	env, err := resp.Recv(ctx)
	if err != nil {
		return SocketQueryResponse{}, err
	}
	if env.Err != nil {
		return SocketQueryResponse{}, env.Err
	}
	return env.Val, nil
}
