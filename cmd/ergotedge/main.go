// Command ergotedge dials an ergotrouter controller over TCP, acquires a
// network id through the seed-router protocol, announces itself, and
// periodically pings the controller to prove the link is alive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/iface"
	"github.com/ergotnet/ergot/internal"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/seedrouter"
	"github.com/ergotnet/ergot/transport/tcp"
	"github.com/ergotnet/ergot/wellknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dialAddr   = flag.String("addr", "127.0.0.1:7070", "controller address to dial")
		deviceName = flag.String("name", "ergotedge", "device name to announce")
		pingPeriod = flag.Duration("ping-period", 5*time.Second, "interval between controller pings")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	profile := iface.NewEdgeProfile()
	var stack netstack.NetStack
	if err := stack.Reset(netstack.Config{Profile: profile}); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	link, err := dialWithBackoff(ctx, *dialAddr, profile, &stack, logger)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer link.Close()
	go link.Run()

	controller := ergot.Address{NodeID: ergot.NodeIDController}
	lease, err := seedrouter.RequestNetID(ctx, &stack, controller)
	if err != nil {
		return fmt.Errorf("request network id: %w", err)
	}
	if err := profile.SetNetID(lease.NetID); err != nil {
		return fmt.Errorf("set network id: %w", err)
	}
	logger.Info("acquired network id", "net_id", lease.NetID)

	info := wellknown.DeviceInfo{
		Name:     *deviceName,
		UniqueID: rand.Uint64(),
	}
	if err := wellknown.PublishDeviceInfo(&stack, info); err != nil {
		logger.Warn("publish device info failed", "err", err)
	}

	ticker := time.NewTicker(*pingPeriod)
	defer ticker.Stop()

	target := ergot.Address{NetworkID: lease.NetID, NodeID: ergot.NodeIDController}
	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			seq++
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			echoed, err := wellknown.Ping(pingCtx, &stack, target, seq)
			cancel()
			if err != nil {
				logger.Warn("ping failed", "err", err)
				continue
			}
			if echoed != seq {
				logger.Warn("ping echoed unexpected value", "want", seq, "got", echoed)
				continue
			}
			logger.Info("ping ok", "seq", seq)
		}
	}
}

// dialWithBackoff retries tcp.DialEdge under an exponential backoff tuned
// for TCP reconnects, so a controller that is not up yet (or briefly
// restarting) does not make the edge exit -- the same shape a serial or
// TCP client in the teacher corpus uses to ride out a flaky link.
func dialWithBackoff(ctx context.Context, addr string, profile *iface.EdgeProfile, stack *netstack.NetStack, logger *slog.Logger) (*tcp.Link, error) {
	backoff := internal.NewBackoff(internal.BackoffTCPConn)
	for {
		link, err := tcp.DialEdge(addr, profile, stack)
		if err == nil {
			return link, nil
		}
		logger.Warn("dial failed, retrying", "addr", addr, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		backoff.Miss()
	}
}
