package socket

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/internal/ring"
	"github.com/ergotnet/ergot/wire"
)

// Borrow is a socket that stores every delivered frame in its serialized
// wire form inside a ring buffer, deserializing lazily when the caller
// asks for it. Unlike Owned, a Borrow socket accepts borrowed sends: the
// value is copied into the ring immediately, so the sender's reference
// never needs to outlive the call. Only a value that is already a
// serialized []byte body is accepted; any other type is refused with
// ergot.ErrTypeMismatch.
//
// Each ring entry is self-framing: a varint header length, a varint body
// length, the encoded Header, then the body bytes. This lets a single
// byte ring hold a queue of variable-length, fully self-describing
// records instead of requiring a side channel for framing metadata.
type Borrow struct {
	hdr Header

	mu     sync.Mutex
	ring   ring.Ring
	notify chan struct{}
}

// MessageGrant is a single frame read back out of a Borrow socket's ring.
// It holds a private copy of the frame bytes, so it remains valid after
// the ring slot it was read from has been reused.
type MessageGrant struct {
	Hdr  ergot.Header
	Body []byte
}

// TryAccess deserializes Body with unmarshal, returning false if it does
// not decode. Call sites that don't know the body's type statically (say,
// an inspector tool) can instead read Body and Hdr.Kind directly.
func (g MessageGrant) TryAccess(unmarshal func([]byte) (any, error)) (any, bool) {
	v, err := unmarshal(g.Body)
	if err != nil {
		return nil, false
	}
	return v, true
}

// NewBorrow constructs a Borrow socket backed by a ring of bufSize bytes.
// discoverable marks the socket as an any-cast/broadcast candidate; see
// Header.Discoverable.
func NewBorrow(key ergot.Key, kind ergot.FrameKind, bufSize int, discoverable bool) *Borrow {
	s := &Borrow{notify: make(chan struct{}, 1)}
	s.ring.Reset(make([]byte, bufSize))
	s.hdr = Header{Kind: kind, Key: key, Discoverable: discoverable}
	s.hdr.VTable = &VTable{
		RecvBorrowed: s.recvBorrowed,
		RecvRaw:      s.recvRaw,
		RecvErr:      s.recvErr,
	}
	return s
}

// Header returns the socket metadata a NetStack attaches by reference.
func (s *Borrow) Header() *Header { return &s.hdr }

func (s *Borrow) recvBorrowed(val any, hdr ergot.Header) error {
	raw, ok := val.([]byte)
	if !ok {
		return ergot.ErrTypeMismatch
	}
	return s.enqueue(hdr, raw)
}

func (s *Borrow) recvRaw(raw []byte, hdr ergot.Header) error {
	return s.enqueue(hdr, raw)
}

func (s *Borrow) recvErr(hdr ergot.Header, err error) {
	hdr = hdr.Clone()
	hdr.Kind = ergot.FrameKindProtocolError
	var body [2]byte
	binary.BigEndian.PutUint16(body[:], uint16(wire.ErrorToProtocolCode(err)))
	// Best effort: an error that can't fit just doesn't get delivered.
	_ = s.enqueue(hdr, body[:])
}

func (s *Borrow) enqueue(hdr ergot.Header, body []byte) error {
	var hbuf [ergot.MaxHeaderEncodedSize]byte
	hn, err := wire.Encode(hbuf[:], hdr)
	if err != nil {
		return err
	}

	var lenPrefix [2 * binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenPrefix[:], uint64(hn))
	n += binary.PutUvarint(lenPrefix[n:], uint64(len(body)))

	frame := make([]byte, 0, n+hn+len(body))
	frame = append(frame, lenPrefix[:n]...)
	frame = append(frame, hbuf[:hn]...)
	frame = append(frame, body...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(frame) > s.ring.Free() {
		return ergot.ErrNoSpace
	}
	if _, err := s.ring.Write(frame); err != nil {
		return ergot.ErrNoSpace
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// tryRecv pops the oldest queued frame, if any.
func (s *Borrow) tryRecv() (MessageGrant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ring.Buffered() == 0 {
		return MessageGrant{}, false
	}

	var lenPrefix [2 * binary.MaxVarintLen64]byte
	peeked, _ := s.ring.ReadPeek(lenPrefix[:min(len(lenPrefix), s.ring.Buffered())])
	hn, used1 := binary.Uvarint(lenPrefix[:peeked])
	if used1 <= 0 {
		return MessageGrant{}, false
	}
	bodyLen, used2 := binary.Uvarint(lenPrefix[used1:peeked])
	if used2 <= 0 {
		return MessageGrant{}, false
	}
	prefixLen := used1 + used2

	total := prefixLen + int(hn) + int(bodyLen)
	rec := make([]byte, total)
	if _, err := s.ring.ReadPeek(rec); err != nil {
		return MessageGrant{}, false
	}
	if err := s.ring.ReadDiscard(total); err != nil {
		return MessageGrant{}, false
	}

	hdr, _, err := wire.Decode(rec[prefixLen : prefixLen+int(hn)])
	if err != nil {
		return MessageGrant{}, false
	}
	body := rec[prefixLen+int(hn):]

	return MessageGrant{Hdr: hdr, Body: body}, true
}

// Recv blocks until a frame arrives, or ctx is done.
func (s *Borrow) Recv(ctx context.Context) (MessageGrant, error) {
	for {
		if g, ok := s.tryRecv(); ok {
			return g, nil
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			return MessageGrant{}, ctx.Err()
		}
	}
}
