package wellknown

import (
	"context"
	"testing"
	"time"

	"github.com/ergotnet/ergot"
)

func TestSocketQueryListsAttachedSockets(t *testing.T) {
	stack := newLocalStack(t)

	srv, err := NewSocketQueryServer(stack)
	if err != nil {
		t.Fatalf("NewSocketQueryServer: %v", err)
	}
	defer srv.Close()

	pingSrv, err := NewPingServer(stack)
	if err != nil {
		t.Fatalf("NewPingServer: %v", err)
	}
	defer pingSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := QuerySockets(ctx, stack, ergot.Address{}, SocketQuery{})
	if err != nil {
		t.Fatalf("QuerySockets: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var sawPing bool
	for _, s := range resp.Sockets {
		if s.Name == "ping" {
			sawPing = true
		}
	}
	if !sawPing {
		t.Fatalf("response %+v missing ping socket", resp.Sockets)
	}
}

func TestSocketQueryFiltersByKey(t *testing.T) {
	stack := newLocalStack(t)

	srv, err := NewSocketQueryServer(stack)
	if err != nil {
		t.Fatalf("NewSocketQueryServer: %v", err)
	}
	defer srv.Close()

	pingSrv, err := NewPingServer(stack)
	if err != nil {
		t.Fatalf("NewPingServer: %v", err)
	}
	defer pingSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	nonMatching := [8]byte(KeyFmt)
	resp, err := QuerySockets(ctx, stack, ergot.Address{}, SocketQuery{Key: &nonMatching})
	if err != nil {
		t.Fatalf("QuerySockets: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(resp.Sockets) != 0 {
		t.Fatalf("expected no sockets to match fmt key, got %+v", resp.Sockets)
	}
}
