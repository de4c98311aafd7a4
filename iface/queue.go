package iface

import (
	"context"

	"github.com/ergotnet/ergot"
)

type queuedFrame struct {
	hdr  ergot.Header
	body []byte
}

// InterfaceQueue is the non-blocking handoff between a NetStack (which
// must never suspend while holding its lock) and a transport's tx worker
// goroutine, which owns the actual blocking write to a connection. It is
// the Go rendition of ergot-base's bbq2 stream producer/consumer split
// backing StdTcpTxHdl: Send never blocks, returning ergot.ErrInterfaceFull
// the instant the queue saturates, the same non-blocking-ring-write
// discipline as the teacher's tcp/txqueue.go.
type InterfaceQueue struct {
	frames chan queuedFrame
	notify chan struct{}
}

// NewInterfaceQueue constructs a queue holding up to depth frames before
// Send starts refusing them.
func NewInterfaceQueue(depth int) *InterfaceQueue {
	return &InterfaceQueue{
		frames: make(chan queuedFrame, depth),
		notify: make(chan struct{}, 1),
	}
}

// Send implements Sink. body is copied, since the caller may reuse its
// buffer immediately after Send returns.
func (q *InterfaceQueue) Send(hdr ergot.Header, body []byte) error {
	owned := append([]byte(nil), body...)
	select {
	case q.frames <- queuedFrame{hdr: hdr, body: owned}:
		return nil
	default:
		return ergot.ErrInterfaceFull
	}
}

// Recv blocks until a frame is queued for transmission or ctx is done. A
// transport's tx worker calls this in a loop and writes whatever it
// returns to the underlying connection.
func (q *InterfaceQueue) Recv(ctx context.Context) (ergot.Header, []byte, error) {
	select {
	case f := <-q.frames:
		select {
		case q.notify <- struct{}{}:
		default:
		}
		return f.hdr, f.body, nil
	case <-ctx.Done():
		return ergot.Header{}, nil, ctx.Err()
	}
}

// WaitHandle returns a channel that becomes readable shortly after the
// queue drains an entry, so a caller that received ErrInterfaceFull can
// wait for room instead of busy-retrying.
func (q *InterfaceQueue) WaitHandle() <-chan struct{} {
	return q.notify
}
