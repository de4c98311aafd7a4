// Package serial wires an iface.EdgeProfile to any already-opened
// byte-stream connection -- a serial port, a Unix domain socket standing
// in for one in tests, anything satisfying io.ReadWriteCloser -- the same
// role std_tcp_client.rs's register_interface plays for TCP, minus the
// TCP-specific net.Conn type.
//
// No concrete serial port driver (a cgo wrapper over termios, a
// USB-CDC library, ...) appears anywhere in the example pack's
// dependency graph, so this package deliberately stops at the
// io.ReadWriteCloser boundary rather than importing one: a caller opens
// whatever actual serial port library its platform needs and hands this
// package the resulting connection.
//
// Like transport/tcp, a Link's Send enqueues onto an
// iface.InterfaceQueue rather than writing inline, so a stalled serial
// peer can never block NetStack's locked dispatch path; a tx worker
// goroutine started by Run drains the queue and performs the blocking
// write.
package serial

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/framing"
	"github.com/ergotnet/ergot/iface"
)

// DefaultMTU bounds the body of any single frame crossing a Link.
const DefaultMTU = 256

// readBufSize is the scratch buffer size for one Conn.Read call. Serial
// links read in much smaller chunks than TCP's readBufSize, reflecting
// typical UART buffer sizes.
const readBufSize = 256

// accumulatorSize bounds how much undecoded COBS input a Link will buffer
// before giving up on a frame in progress.
const accumulatorSize = 64 * 1024

// txQueueDepth bounds how many outgoing frames Send may queue before a
// slow peer makes it start returning ergot.ErrInterfaceFull.
const txQueueDepth = 16

// Link is one byte-stream connection driving an iface.Sink/Receiver pair.
type Link struct {
	conn  io.ReadWriteCloser
	sink  *framing.CobsSink
	queue *iface.InterfaceQueue
	recv  *iface.Receiver
}

func newLink(conn io.ReadWriteCloser) *Link {
	return &Link{
		conn:  conn,
		sink:  framing.NewCobsSink(conn, DefaultMTU),
		queue: iface.NewInterfaceQueue(txQueueDepth),
	}
}

// Send implements iface.Sink. It never blocks on the connection: the
// frame is handed to the tx worker's queue, returning
// ergot.ErrInterfaceFull if that queue is saturated.
func (l *Link) Send(hdr ergot.Header, body []byte) error { return l.queue.Send(hdr, body) }

// Run pumps conn's receive side and drives the tx worker until either
// direction fails, COBS-reassembling received frames and handing each to
// the Receiver. It always returns a non-nil error.
func (l *Link) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	var eg errgroup.Group
	eg.Go(func() error {
		err := l.txLoop(ctx)
		l.conn.Close()
		return err
	})
	eg.Go(func() error {
		err := l.recvLoop()
		cancel()
		return err
	})
	return eg.Wait()
}

// txLoop drains the send queue and performs the actual blocking writes,
// the tx-worker half of Run.
func (l *Link) txLoop(ctx context.Context) error {
	for {
		hdr, body, err := l.queue.Recv(ctx)
		if err != nil {
			return err
		}
		if err := l.sink.Send(hdr, body); err != nil {
			return err
		}
	}
}

// recvLoop is the receive-worker half of Run.
func (l *Link) recvLoop() error {
	acc := framing.NewAccumulator(accumulatorSize)
	buf := make([]byte, readBufSize)
	for {
		n, err := l.conn.Read(buf)
		if n == 0 && err != nil {
			return err
		}
		window := buf[:n]
		for len(window) > 0 {
			res := acc.Feed(window)
			switch res.Kind {
			case framing.FeedConsumed:
				window = nil
			case framing.FeedOverFull, framing.FeedDecodeError:
				window = res.Remaining
			case framing.FeedSuccess, framing.FeedSuccessInput:
				_ = l.recv.Deliver(res.Data)
				window = res.Remaining
			}
		}
	}
}

// Close closes the underlying connection, unblocking Run.
func (l *Link) Close() error { return l.conn.Close() }

// Register wraps conn as a Link and registers it as profile's single
// sink, returning the Link whose Run method the caller must invoke
// (typically in its own goroutine). This is the serial-link counterpart
// of transport/tcp's DialEdge -- there is no dial step here, since
// opening the port itself is left to the caller.
func Register(conn io.ReadWriteCloser, profile *iface.EdgeProfile, stack iface.Stack) *Link {
	link := newLink(conn)
	link.recv = iface.NewReceiver(stack, profile)
	profile.Register(link)
	return link
}

// fixedNetID adapts a network id known at Attach time to
// iface.NetIDProvider, mirroring transport/tcp's fixedNetID -- a
// RouterProfile link's net id never changes for the life of the
// connection.
type fixedNetID uint16

func (f fixedNetID) NetID() (uint16, bool) { return uint16(f), true }

// RegisterRouter wraps conn as a Link and attaches it to profile as a new
// link, for the controller end of a point-to-point serial connection --
// iface.RouterProfile is transport-agnostic, so the same type that backs
// transport/tcp's star topology also serves a single serial peer here.
func RegisterRouter(conn io.ReadWriteCloser, profile *iface.RouterProfile, stack iface.Stack) (*Link, uint16, error) {
	link := newLink(conn)
	netID, err := profile.Attach(link)
	if err != nil {
		return nil, 0, err
	}
	link.recv = iface.NewReceiver(stack, fixedNetID(netID))
	return link, netID, nil
}
