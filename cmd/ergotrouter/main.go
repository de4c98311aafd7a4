// Command ergotrouter runs a standalone ergot controller: a star-topology
// TCP router that accepts edges, assigns them network ids through the
// seed-router protocol, and answers well-known liveness/discovery
// requests on their behalf.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ergotnet/ergot/iface"
	"github.com/ergotnet/ergot/metrics"
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
		listenAddr  = flag.String("addr", "127.0.0.1:7070", "address to accept edge connections on")
		metricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on, empty to disable")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	profile := iface.NewRouterProfile()
	var stack netstack.NetStack
	if err := stack.Reset(netstack.Config{Profile: profile, Metrics: collector}); err != nil {
		return err
	}

	pingSrv, err := wellknown.NewPingServer(&stack)
	if err != nil {
		return fmt.Errorf("ping server: %w", err)
	}
	defer pingSrv.Close()

	queryServer, err := wellknown.NewSocketQueryServer(&stack)
	if err != nil {
		return fmt.Errorf("socket query server: %w", err)
	}
	defer queryServer.Close()

	seedSrv, err := seedrouter.NewServer(&stack, 1)
	if err != nil {
		return fmt.Errorf("seed router server: %w", err)
	}
	defer seedSrv.Close()

	logListener := wellknown.NewLogListener(&stack)
	defer logListener.Close()

	infoListener := wellknown.NewDeviceInfoListener(&stack)
	defer infoListener.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go serveForever(ctx, func() error { return pingSrv.Serve(ctx) }, logger, "ping")
	go serveForever(ctx, func() error { return queryServer.Serve(ctx) }, logger, "socket-query")
	go serveForever(ctx, func() error { return seedSrv.ServeRequest(ctx) }, logger, "seed-router-request")
	go serveForever(ctx, func() error { return seedSrv.ServeRefresh(ctx) }, logger, "seed-router-refresh")
	go logForever(ctx, logListener, logger)
	go announceForever(ctx, infoListener, logger)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server exited", "err", err)
			}
		}()
	}

	router, err := tcp.ListenRouter(*listenAddr, profile, &stack)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("ergotrouter listening", "addr", router.Addr().String())

	go func() {
		<-ctx.Done()
		router.Close()
	}()
	return router.Serve()
}

func serveForever(ctx context.Context, serveOnce func() error, logger *slog.Logger, name string) {
	for {
		if err := serveOnce(); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("server handler exited", "endpoint", name, "err", err)
		}
	}
}

func logForever(ctx context.Context, listener *wellknown.LogListener, logger *slog.Logger) {
	for {
		rec, err := listener.Recv(ctx)
		if err != nil {
			return
		}
		logger.Info("remote log", "level", rec.Level, "message", rec.Message)
	}
}

func announceForever(ctx context.Context, listener *wellknown.DeviceInfoListener, logger *slog.Logger) {
	for {
		info, err := listener.Recv(ctx)
		if err != nil {
			return
		}
		logger.Info("device announced", "name", info.Name, "description", info.Description, "unique_id", info.UniqueID)
	}
}
