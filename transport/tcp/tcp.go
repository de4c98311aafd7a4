// Package tcp wires ergot's iface profiles to real TCP connections,
// following ergot-base's std_tcp_client.rs/std_tcp_router.rs: frames cross
// the wire COBS-encoded, exactly as they would over a serial link, since
// TCP on its own gives byte-stream delivery with no message boundaries.
//
// A Link's Send enqueues onto an iface.InterfaceQueue instead of writing
// to the connection inline: NetStack invokes Send with its stack lock
// held, and a stalled peer must never be allowed to stall every other
// stack operation waiting on that lock. A dedicated tx worker goroutine,
// started by Run, drains the queue and performs the actual blocking
// net.Conn.Write -- the same bbq2-queued tx_worker split
// std_tcp_client.rs/std_tcp_router.rs use.
package tcp

import (
	"context"
	"errors"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/framing"
	"github.com/ergotnet/ergot/iface"
)

// DefaultMTU bounds the body of any single frame crossing a Link,
// matching std_tcp_client.rs's 1024-byte interface mtu.
const DefaultMTU = 1024

// readBufSize is the scratch buffer size for one Conn.Read call,
// matching std_tcp_client.rs's 4096-byte raw_buf.
const readBufSize = 4096

// accumulatorSize bounds how much undecoded COBS input a Link will buffer
// before giving up on a frame in progress, matching std_tcp_client.rs's
// 1 MiB CobsAccumulator.
const accumulatorSize = 1024 * 1024

// txQueueDepth bounds how many outgoing frames Send may queue before a
// slow peer makes it start returning ergot.ErrInterfaceFull.
const txQueueDepth = 64

// Link is one TCP connection driving an iface.Sink/Receiver pair.
type Link struct {
	conn  net.Conn
	sink  *framing.CobsSink
	queue *iface.InterfaceQueue
	recv  *iface.Receiver
}

func newLink(conn net.Conn) *Link {
	return &Link{
		conn:  conn,
		sink:  framing.NewCobsSink(conn, DefaultMTU),
		queue: iface.NewInterfaceQueue(txQueueDepth),
	}
}

// Send implements iface.Sink, so a Link can be registered directly with
// an EdgeProfile or RouterProfile. It never blocks on the connection: the
// frame is handed to the tx worker's queue, returning
// ergot.ErrInterfaceFull if that queue is saturated.
func (l *Link) Send(hdr ergot.Header, body []byte) error { return l.queue.Send(hdr, body) }

// Run pumps conn's receive side and drives the tx worker until either
// direction fails, COBS-reassembling received frames and handing each to
// the Receiver. It always returns a non-nil error, including on a clean
// close.
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
				// A malformed or unroutable frame never tears down the
				// link; it is simply dropped and the loop continues.
				_ = l.recv.Deliver(res.Data)
				window = res.Remaining
			}
		}
	}
}

// Close closes the underlying connection, unblocking Run.
func (l *Link) Close() error { return l.conn.Close() }

// DialEdge dials addr and registers the resulting connection as profile's
// single sink, returning a Link whose Run method the caller must invoke
// (typically in its own goroutine).
func DialEdge(addr string, profile *iface.EdgeProfile, stack iface.Stack) (*Link, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	link := newLink(conn)
	link.recv = iface.NewReceiver(stack, profile)
	profile.Register(link)
	return link, nil
}

// fixedNetID adapts a network id known at Attach time to
// iface.NetIDProvider, since a RouterProfile link's net id never changes
// for the life of the connection.
type fixedNetID uint16

func (f fixedNetID) NetID() (uint16, bool) { return uint16(f), true }

// Router accepts TCP connections and attaches each as a new link on
// profile, the transport-package counterpart to
// std_tcp_router.rs's register_interface/serve loop.
type Router struct {
	ln      net.Listener
	profile *iface.RouterProfile
	stack   iface.Stack
}

// ListenRouter starts accepting connections on addr, each becoming a new
// link on profile.
func ListenRouter(addr string, profile *iface.RouterProfile, stack iface.Stack) (*Router, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Router{ln: ln, profile: profile, stack: stack}, nil
}

// Addr returns the listener's bound address.
func (r *Router) Addr() net.Addr { return r.ln.Addr() }

// Close stops accepting new connections.
func (r *Router) Close() error { return r.ln.Close() }

// Serve accepts connections until the listener closes, running each
// link's receive loop in its own errgroup goroutine. It returns nil once
// Close is called and every in-flight link has exited.
func (r *Router) Serve() error {
	var eg errgroup.Group
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			eg.Wait()
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		eg.Go(func() error {
			return r.handle(conn)
		})
	}
}

func (r *Router) handle(conn net.Conn) error {
	link := newLink(conn)
	netID, err := r.profile.Attach(link)
	if err != nil {
		conn.Close()
		return err
	}
	link.recv = iface.NewReceiver(r.stack, fixedNetID(netID))
	defer r.profile.Detach(netID)
	defer conn.Close()
	return link.Run()
}
