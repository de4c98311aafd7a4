package wellknown

import (
	"context"
	"testing"
	"time"
)

func TestFmtLogPublishSubscribe(t *testing.T) {
	stack := newLocalStack(t)

	listener := NewLogListener(stack)
	defer listener.Close()

	want := LogRecord{Level: "info", Message: "hello"}
	if err := PublishLog(stack, want); err != nil {
		t.Fatalf("PublishLog: %v", err)
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
