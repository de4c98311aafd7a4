package netstack

import (
	"testing"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/socket"
)

func attachDummy(t *testing.T, n *NetStack, kind ergot.FrameKind, key ergot.Key) *socket.Header {
	t.Helper()
	hdr := &socket.Header{Kind: kind, Key: key, Discoverable: true, VTable: &socket.VTable{
		RecvOwned: func(val any, hdr ergot.Header) error { return nil },
		RecvRaw:   func(raw []byte, hdr ergot.Header) error { return nil },
	}}
	if _, err := n.Attach(hdr); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return hdr
}

// TestPortAllocSequence mirrors the teacher's Rust port_alloc test: fill
// most of the port space, free a couple of ports out of order, and check
// that a port freed inside the current cache bank is reused at once, that
// one freed in an earlier bank is handed out again only after the fresh
// ports above it are used up, and that ports 0 and 255 are never allocated.
func TestPortAllocSequence(t *testing.T) {
	var n NetStack
	n.Reset(Config{})

	var handles []*socket.Header
	attach := func(want uint8) {
		h := &socket.Header{Kind: 1, VTable: &socket.VTable{RecvRaw: func([]byte, ergot.Header) error { return nil }}}
		port, err := n.Attach(h)
		if err != nil {
			t.Fatalf("attach: %v", err)
		}
		if port != want {
			t.Fatalf("attach port=%d want %d", port, want)
		}
		handles = append(handles, h)
	}
	detach := func(port uint8) {
		for i, h := range handles {
			if h.Port == port {
				n.Detach(h)
				handles = append(handles[:i], handles[i+1:]...)
				return
			}
		}
		t.Fatalf("no handle for port %d", port)
	}

	for i := uint8(1); i < 32; i++ {
		attach(i)
	}
	for i := uint8(32); i < 40; i++ {
		attach(i)
	}
	detach(35)
	attach(35)
	detach(4)
	attach(40)
	for i := uint8(41); i < 64; i++ {
		attach(i)
	}
	attach(4)
	for i := uint8(64); i < 255; i++ {
		attach(i)
	}
	detach(212)
	attach(212)

	// The whole 1..254 space is now taken; one more attach must fail.
	h := &socket.Header{Kind: 1, VTable: &socket.VTable{RecvRaw: func([]byte, ergot.Header) error { return nil }}}
	if _, err := n.Attach(h); err != ergot.ErrNoSpace {
		t.Fatalf("err=%v want ErrNoSpace", err)
	}
}

func TestAttachNeverAllocatesReservedPorts(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	for i := 0; i < 10; i++ {
		h := attachDummy(t, &n, 1, ergot.Key{})
		if h.Port == ergot.PortAny || h.Port == ergot.PortBroadcast {
			t.Fatalf("allocated reserved port %d", h.Port)
		}
	}
}

func seqP(v uint16) *uint16 { return &v }

func TestSendTyUnicast(t *testing.T) {
	var n NetStack
	n.Reset(Config{})

	var got any
	h := &socket.Header{Kind: ergot.FrameKindEndpointRequest, VTable: &socket.VTable{
		RecvOwned: func(val any, hdr ergot.Header) error { got = val; return nil },
	}}
	port, _ := n.Attach(h)

	hdr := ergot.Header{Dst: ergot.Address{PortID: port}, Kind: ergot.FrameKindEndpointRequest}
	if err := n.SendTy(hdr, 42, nil); err != nil {
		t.Fatalf("SendTy: %v", err)
	}
	if got != 42 {
		t.Fatalf("got=%v", got)
	}
}

func TestSendTyWrongPortKind(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	h := attachDummy(t, &n, ergot.FrameKindEndpointRequest, ergot.Key{})
	hdr := ergot.Header{Dst: ergot.Address{PortID: h.Port}, Kind: ergot.FrameKindTopicMessage}
	if err := n.SendTy(hdr, 1, nil); err != ergot.ErrWrongPortKind {
		t.Fatalf("err=%v want ErrWrongPortKind", err)
	}
}

func TestSendTyNoRoute(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	hdr := ergot.Header{Dst: ergot.Address{PortID: 5}, Kind: ergot.FrameKindEndpointRequest}
	if err := n.SendTy(hdr, 1, nil); err != ergot.ErrNoRoute {
		t.Fatalf("err=%v want ErrNoRoute", err)
	}
}

func TestSendTyAnyPortNotUnique(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	key := ergot.Key{1}
	attachDummy(t, &n, ergot.FrameKindTopicMessage, key)
	attachDummy(t, &n, ergot.FrameKindTopicMessage, key)

	hdr := ergot.Header{
		Dst:    ergot.Address{PortID: ergot.PortAny},
		Kind:   ergot.FrameKindTopicMessage,
		AnyAll: &ergot.AnyAllAppendix{Key: key},
	}
	if err := n.SendTy(hdr, 1, nil); err != ergot.ErrAnyPortNotUnique {
		t.Fatalf("err=%v want ErrAnyPortNotUnique", err)
	}
}

// TestSendTyAnyPortNotDiscoverable checks the negative case the above test
// doesn't: a non-discoverable socket sharing a key with a discoverable one
// (an ephemeral client response listener alongside its server's request
// responder, say) must never itself draw an ErrAnyPortNotUnique, nor be
// reachable by any-cast at all.
func TestSendTyAnyPortNotDiscoverable(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	key := ergot.Key{1}

	var got any
	responder := &socket.Header{Kind: ergot.FrameKindTopicMessage, Key: key, Discoverable: true, VTable: &socket.VTable{
		RecvOwned: func(val any, hdr ergot.Header) error { got = val; return nil },
	}}
	if _, err := n.Attach(responder); err != nil {
		t.Fatalf("attach responder: %v", err)
	}
	listener := &socket.Header{Kind: ergot.FrameKindTopicMessage, Key: key, Discoverable: false, VTable: &socket.VTable{
		RecvOwned: func(val any, hdr ergot.Header) error { t.Fatal("non-discoverable socket must not receive any-cast sends"); return nil },
	}}
	if _, err := n.Attach(listener); err != nil {
		t.Fatalf("attach listener: %v", err)
	}

	hdr := ergot.Header{
		Dst:    ergot.Address{PortID: ergot.PortAny},
		Kind:   ergot.FrameKindTopicMessage,
		AnyAll: &ergot.AnyAllAppendix{Key: key},
	}
	if err := n.SendTy(hdr, 1, nil); err != nil {
		t.Fatalf("SendTy: %v", err)
	}
	if got != 1 {
		t.Fatalf("got=%v want delivery to the discoverable responder", got)
	}
}

func TestSendTyAnyPortMissingKey(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	hdr := ergot.Header{Dst: ergot.Address{PortID: ergot.PortAny}, Kind: ergot.FrameKindTopicMessage}
	if err := n.SendTy(hdr, 1, nil); err != ergot.ErrAnyPortMissingKey {
		t.Fatalf("err=%v want ErrAnyPortMissingKey", err)
	}
}

func TestSendTyBroadcastFanOut(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	key := ergot.Key{7}

	var count int
	newListener := func() *socket.Header {
		h := &socket.Header{Kind: ergot.FrameKindTopicMessage, Key: key, Discoverable: true, VTable: &socket.VTable{
			RecvOwned: func(val any, hdr ergot.Header) error { count++; return nil },
		}}
		n.AttachBroadcast(h)
		return h
	}
	newListener()
	newListener()

	hdr := ergot.Header{
		Dst:    ergot.Address{PortID: ergot.PortBroadcast},
		Kind:   ergot.FrameKindTopicMessage,
		AnyAll: &ergot.AnyAllAppendix{Key: key},
	}
	if err := n.SendTy(hdr, 99, nil); err != nil {
		t.Fatalf("SendTy: %v", err)
	}
	if count != 2 {
		t.Fatalf("count=%d want 2", count)
	}
}

func TestSendRawMatchesByPort(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	var gotBody []byte
	h := &socket.Header{Kind: ergot.FrameKindTopicMessage, VTable: &socket.VTable{
		RecvRaw: func(raw []byte, hdr ergot.Header) error { gotBody = raw; return nil },
	}}
	port, _ := n.Attach(h)

	hdr := ergot.Header{Dst: ergot.Address{PortID: port}, Kind: ergot.FrameKindTopicMessage}
	if err := n.SendRaw(hdr, []byte("hi")); err != nil {
		t.Fatalf("SendRaw: %v", err)
	}
	if string(gotBody) != "hi" {
		t.Fatalf("gotBody=%q", gotBody)
	}
}

func TestSendRawNoRoute(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	hdr := ergot.Header{Dst: ergot.Address{PortID: 9}, Kind: ergot.FrameKindTopicMessage}
	if err := n.SendRaw(hdr, []byte("x")); err != ergot.ErrNoRoute {
		t.Fatalf("err=%v want ErrNoRoute", err)
	}
}

func TestDetachFreesPortForReuse(t *testing.T) {
	var n NetStack
	n.Reset(Config{})
	h := attachDummy(t, &n, 1, ergot.Key{})
	port := h.Port
	n.Detach(h)
	h2 := attachDummy(t, &n, 1, ergot.Key{})
	if h2.Port != port {
		t.Fatalf("expected recycled port %d, got %d", port, h2.Port)
	}
}
