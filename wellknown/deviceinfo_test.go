package wellknown

import (
	"context"
	"testing"
	"time"

	"github.com/ergotnet/ergot"
)

func TestDeviceInfoPublishSubscribe(t *testing.T) {
	stack := newLocalStack(t)

	listener := NewDeviceInfoListener(stack)
	defer listener.Close()

	want := DeviceInfo{Name: "node-a", Description: "test node", UniqueID: 123}
	if err := PublishDeviceInfo(stack, want); err != nil {
		t.Fatalf("PublishDeviceInfo: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := listener.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestInterrogationTriggersRepublish(t *testing.T) {
	stack := newLocalStack(t)

	info := DeviceInfo{Name: "node-b", Description: "interrogated", UniqueID: 9}
	responder := NewInterrogationListener(stack, func() DeviceInfo { return info })
	defer responder.Close()

	listener := NewDeviceInfoListener(stack)
	defer listener.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- responder.Serve(ctx) }()

	if err := Interrogate(stack, ergot.Address{}); err != nil {
		t.Fatalf("Interrogate: %v", err)
	}

	got, err := listener.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got != info {
		t.Fatalf("got %+v, want %+v", got, info)
	}
	if err := <-done; err != nil {
		t.Fatalf("Serve: %v", err)
	}
}
