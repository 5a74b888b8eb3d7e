package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/clinical-extractor/internal/async"
	"github.com/joseph-ayodele/clinical-extractor/internal/ingest"
	"github.com/joseph-ayodele/clinical-extractor/internal/repository"
	"github.com/joseph-ayodele/clinical-extractor/internal/server"
)

var (
	serveHTTPAddr string
	serveGRPCAddr string
	serveWatch    []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and gRPC APIs",
	Long: `Opens the run store, starts the async worker pool and serves the echo
HTTP API (under /api/v1, health at /healthz) and the gRPC extractor service
with the standard health service until interrupted. With --watch, documents
dropped into the watched directories are queued as runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "HTTP listen address (default from HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc", "", "gRPC listen address (default from GRPC_ADDR)")
	serveCmd.Flags().StringSliceVar(&serveWatch, "watch", nil, "directories whose .txt/.pdf documents are queued automatically")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.logger

	if err := repository.HealthCheck(ctx, a.db, a.cfg.Database.DialTimeout, log); err != nil {
		return fmt.Errorf("run store health: %w", err)
	}
	log.Info("db.health.ok", "dialect", a.db.Dialect)

	queue := async.NewProcessorQueue(a.runs, log,
		async.WithWorkers(a.cfg.Queue.Workers),
		async.WithQueueSize(a.cfg.Queue.Size),
		async.WithProcessTimeout(a.cfg.Queue.ProcessTimeout),
	)

	health := func(ctx context.Context) error {
		return repository.HealthCheck(ctx, a.db, time.Second, log)
	}
	handler := server.NewHandler(a.runs, a.store, queue, a.export, health, log)
	e := server.NewEcho(handler)

	grpcServer, hs := server.NewGRPCServer(a.runs, log)

	httpAddr := firstNonEmpty(serveHTTPAddr, a.cfg.Server.HTTPAddr)
	grpcAddr := firstNonEmpty(serveGRPCAddr, a.cfg.Server.GRPCAddr)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}

	errc := make(chan error, 3)
	if len(serveWatch) > 0 {
		ing := ingest.NewFSIngestor(a.runs, queue, flagMode, log)
		go func() {
			log.Info("ingest.watching", "roots", serveWatch)
			err := ing.Watch(ctx, ingest.WatchConfig{Roots: serveWatch, InitialScan: true, Debounce: 500 * time.Millisecond})
			if err != nil {
				errc <- fmt.Errorf("watch: %w", err)
			}
		}()
	}
	go func() {
		log.Info("grpc.serving", "addr", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info("http.serving", "addr", httpAddr)
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err = <-errc:
		log.Error("server.failed", "error", err)
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http.shutdown.failed", "error", serr)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	log.Info("stopped")
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
