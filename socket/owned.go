package socket

import (
	"context"

	"github.com/ergotnet/ergot"
)

// Envelope is what Owned[T].Recv yields: either a decoded value from Val,
// or a protocol error reported back from a remote stack in Err. Exactly
// one of the two is meaningful for any given Envelope.
type Envelope[T any] struct {
	Hdr ergot.Header
	Val T
	Err error
}

// Owned is a single-type socket that stores delivered messages fully
// decoded, in a buffered channel. It is the cheapest socket kind for
// request/response and point-to-point delivery: a local send can hand off
// a value with no serialization round trip at all, since RecvOwned
// accepts the value directly.
//
// Owned sockets never accept borrowed deliveries -- there is nowhere to
// copy a borrowed value into without paying for a serialize/deserialize
// round trip anyway, so a frame arriving through a borrowed send path
// against an Owned socket is a port kind mismatch, not a silent copy.
type Owned[T any] struct {
	hdr       Header
	ch        chan Envelope[T]
	unmarshal func([]byte) (T, error)
}

// NewOwned constructs an Owned[T] socket with room for queueLen
// undelivered envelopes. unmarshal decodes a wire body into T when a
// frame arrives via RecvRaw, i.e. crossed an interface rather than being
// dispatched locally; it may be nil if the socket never expects raw
// deliveries. discoverable marks the socket as an any-cast/broadcast
// candidate -- a server's request responder is discoverable, while an
// ephemeral client response listener sharing the same key is not.
func NewOwned[T any](key ergot.Key, kind ergot.FrameKind, queueLen int, unmarshal func([]byte) (T, error), discoverable bool) *Owned[T] {
	s := &Owned[T]{
		ch:        make(chan Envelope[T], queueLen),
		unmarshal: unmarshal,
	}
	s.hdr = Header{Kind: kind, Key: key, Discoverable: discoverable}
	s.hdr.VTable = &VTable{
		RecvOwned: s.recvOwned,
		RecvRaw:   s.recvRaw,
		RecvErr:   s.recvErr,
	}
	return s
}

// Header returns the socket metadata a NetStack attaches by reference.
func (s *Owned[T]) Header() *Header { return &s.hdr }

func (s *Owned[T]) recvOwned(val any, hdr ergot.Header) error {
	v, ok := val.(T)
	if !ok {
		return ergot.ErrTypeMismatch
	}
	select {
	case s.ch <- Envelope[T]{Hdr: hdr, Val: v}:
		return nil
	default:
		return ergot.ErrNoSpace
	}
}

func (s *Owned[T]) recvRaw(raw []byte, hdr ergot.Header) error {
	if s.unmarshal == nil {
		return ergot.ErrDeserFailed
	}
	v, err := s.unmarshal(raw)
	if err != nil {
		return ergot.ErrDeserFailed
	}
	select {
	case s.ch <- Envelope[T]{Hdr: hdr, Val: v}:
		return nil
	default:
		return ergot.ErrNoSpace
	}
}

func (s *Owned[T]) recvErr(hdr ergot.Header, err error) {
	select {
	case s.ch <- Envelope[T]{Hdr: hdr, Err: err}:
	default:
		// No room for the error either; the caller's Recv will simply
		// time out or observe the next successful envelope instead.
	}
}

// Recv blocks until a message or protocol error arrives, or ctx is done.
func (s *Owned[T]) Recv(ctx context.Context) (Envelope[T], error) {
	select {
	case env := <-s.ch:
		return env, nil
	case <-ctx.Done():
		return Envelope[T]{}, ctx.Err()
	}
}

// TryRecv returns immediately with ok=false if no message is queued.
func (s *Owned[T]) TryRecv() (env Envelope[T], ok bool) {
	select {
	case env = <-s.ch:
		return env, true
	default:
		return Envelope[T]{}, false
	}
}
