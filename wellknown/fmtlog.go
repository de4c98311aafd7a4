package wellknown

import (
	"context"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/socket"
)

// PublishLog broadcasts one formatted log line on the fmt topic, the Go
// rendition of well_known.rs's ErgotFmtRxOwned publish side.
func PublishLog(stack *netstack.NetStack, rec LogRecord) error {
	hdr := ergot.Header{
		Dst:    ergot.Address{PortID: ergot.PortBroadcast},
		AnyAll: &ergot.AnyAllAppendix{Key: KeyFmt},
		Kind:   ergot.FrameKindTopicMessage,
		TTL:    defaultTTL,
	}
	return stack.SendTy(hdr, rec, marshalJSON)
}

// LogListener subscribes to the fmt broadcast topic.
type LogListener struct {
	stack *netstack.NetStack
	sock  *socket.Owned[LogRecord]
}

// NewLogListener attaches a broadcast listener for fmt log lines.
func NewLogListener(stack *netstack.NetStack) *LogListener {
	sock := socket.NewOwned[LogRecord](KeyFmt, ergot.FrameKindTopicMessage, 64, unmarshalJSON[LogRecord], true)
	sock.Header().Name = "fmt"
	stack.AttachBroadcast(sock.Header())
	return &LogListener{stack: stack, sock: sock}
}

// Recv blocks for the next log line.
func (l *LogListener) Recv(ctx context.Context) (LogRecord, error) {
	env, err := l.sock.Recv(ctx)
	if err != nil {
		return LogRecord{}, err
	}
	return env.Val, env.Err
}

// Close detaches the listener from its stack.
func (l *LogListener) Close() { l.stack.Detach(l.sock.Header()) }
