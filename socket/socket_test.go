package socket

import (
	"context"
	"testing"
	"time"

	"github.com/ergotnet/ergot"
)

func seqP(v uint16) *uint16 { return &v }

func testHeader(kind ergot.FrameKind) ergot.Header {
	return ergot.Header{
		Src:   ergot.Address{NodeID: 1, PortID: 3},
		Dst:   ergot.Address{NodeID: 2, PortID: 7},
		SeqNo: seqP(1),
		Kind:  kind,
		TTL:   8,
	}
}

func TestOwnedRecvOwned(t *testing.T) {
	s := NewOwned[string](ergot.Key{1}, ergot.FrameKindEndpointRequest, 2, nil, true)
	hdr := testHeader(ergot.FrameKindEndpointRequest)
	if err := s.Header().VTable.RecvOwned("hello", hdr); err != nil {
		t.Fatalf("RecvOwned: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	env, err := s.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if env.Val != "hello" {
		t.Fatalf("val=%q", env.Val)
	}
}

func TestOwnedRecvOwnedTypeMismatch(t *testing.T) {
	s := NewOwned[string](ergot.Key{1}, ergot.FrameKindEndpointRequest, 2, nil, true)
	err := s.Header().VTable.RecvOwned(42, testHeader(ergot.FrameKindEndpointRequest))
	if err != ergot.ErrTypeMismatch {
		t.Fatalf("err=%v want ErrTypeMismatch", err)
	}
}

func TestOwnedQueueFull(t *testing.T) {
	s := NewOwned[int](ergot.Key{1}, ergot.FrameKindEndpointRequest, 1, nil, true)
	hdr := testHeader(ergot.FrameKindEndpointRequest)
	if err := s.Header().VTable.RecvOwned(1, hdr); err != nil {
		t.Fatal(err)
	}
	if err := s.Header().VTable.RecvOwned(2, hdr); err != ergot.ErrNoSpace {
		t.Fatalf("err=%v want ErrNoSpace", err)
	}
}

func TestOwnedRecvRaw(t *testing.T) {
	unmarshal := func(b []byte) (int, error) { return int(b[0]), nil }
	s := NewOwned[int](ergot.Key{1}, ergot.FrameKindEndpointRequest, 1, unmarshal, true)
	if err := s.Header().VTable.RecvRaw([]byte{42}, testHeader(ergot.FrameKindEndpointRequest)); err != nil {
		t.Fatal(err)
	}
	env, ok := s.TryRecv()
	if !ok || env.Val != 42 {
		t.Fatalf("env=%+v ok=%v", env, ok)
	}
}

func TestOwnedRecvErr(t *testing.T) {
	s := NewOwned[int](ergot.Key{1}, ergot.FrameKindEndpointRequest, 1, nil, true)
	s.Header().VTable.RecvErr(testHeader(ergot.FrameKindProtocolError), ergot.ErrNoRoute)
	env, ok := s.TryRecv()
	if !ok || env.Err != ergot.ErrNoRoute {
		t.Fatalf("env=%+v ok=%v", env, ok)
	}
}

func TestBorrowRecvRawRoundTrip(t *testing.T) {
	s := NewBorrow(ergot.Key{9}, ergot.FrameKindTopicMessage, 256, true)
	hdr := testHeader(ergot.FrameKindTopicMessage)
	if err := s.Header().VTable.RecvRaw([]byte("payload"), hdr); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	grant, err := s.Recv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(grant.Body) != "payload" {
		t.Fatalf("body=%q", grant.Body)
	}
	if grant.Hdr.Src != hdr.Src || grant.Hdr.Dst != hdr.Dst {
		t.Fatalf("hdr mismatch: got %+v want %+v", grant.Hdr, hdr)
	}
}

func TestBorrowMultipleFramesFIFO(t *testing.T) {
	s := NewBorrow(ergot.Key{9}, ergot.FrameKindTopicMessage, 256, true)
	hdr := testHeader(ergot.FrameKindTopicMessage)
	for _, body := range []string{"one", "two", "three"} {
		if err := s.Header().VTable.RecvRaw([]byte(body), hdr); err != nil {
			t.Fatal(err)
		}
	}
	ctx := context.Background()
	for _, want := range []string{"one", "two", "three"} {
		grant, err := s.Recv(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if string(grant.Body) != want {
			t.Fatalf("got %q want %q", grant.Body, want)
		}
	}
}

func TestBorrowRecvErrEncodesProtocolCode(t *testing.T) {
	s := NewBorrow(ergot.Key{9}, ergot.FrameKindTopicMessage, 256, true)
	s.Header().VTable.RecvErr(testHeader(ergot.FrameKindTopicMessage), ergot.ErrNoRoute)
	ctx := context.Background()
	grant, err := s.Recv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if grant.Hdr.Kind != ergot.FrameKindProtocolError {
		t.Fatalf("kind=%v want ProtocolError", grant.Hdr.Kind)
	}
	if len(grant.Body) != 2 {
		t.Fatalf("body len=%d want 2", len(grant.Body))
	}
}

func TestBorrowNoSpace(t *testing.T) {
	s := NewBorrow(ergot.Key{9}, ergot.FrameKindTopicMessage, 16, true)
	hdr := testHeader(ergot.FrameKindTopicMessage)
	big := make([]byte, 64)
	if err := s.Header().VTable.RecvRaw(big, hdr); err != ergot.ErrNoSpace {
		t.Fatalf("err=%v want ErrNoSpace", err)
	}
}

func TestBorrowRecvCtxCancel(t *testing.T) {
	s := NewBorrow(ergot.Key{9}, ergot.FrameKindTopicMessage, 16, true)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Recv(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("err=%v want DeadlineExceeded", err)
	}
}

func TestMatchesKey(t *testing.T) {
	nash := ergot.NameHash{1}
	h := Header{Key: ergot.Key{5}, Nash: &nash, Discoverable: true}
	if !h.MatchesKey(ergot.Key{5}, nil) {
		t.Fatal("expected match with nil nash filter")
	}
	if !h.MatchesKey(ergot.Key{5}, &nash) {
		t.Fatal("expected match with equal nash")
	}
	other := ergot.NameHash{2}
	if h.MatchesKey(ergot.Key{5}, &other) {
		t.Fatal("expected mismatch with different nash")
	}
	if h.MatchesKey(ergot.Key{6}, nil) {
		t.Fatal("expected mismatch with different key")
	}
}

func TestMatchesKeyNotDiscoverable(t *testing.T) {
	// A non-discoverable socket may share a key with a discoverable one
	// (an ephemeral client response listener alongside its server's
	// request responder) without itself becoming an any-cast/broadcast
	// candidate.
	h := Header{Key: ergot.Key{5}, Discoverable: false}
	if h.MatchesKey(ergot.Key{5}, nil) {
		t.Fatal("non-discoverable header must never match")
	}
}
