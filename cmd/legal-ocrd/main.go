package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/legal-ocr/internal/async"
	"github.com/joseph-ayodele/legal-ocr/internal/common"
	"github.com/joseph-ayodele/legal-ocr/internal/core"
	"github.com/joseph-ayodele/legal-ocr/internal/ingest"
	"github.com/joseph-ayodele/legal-ocr/internal/pipeline"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := core.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := os.MkdirAll(cfg.Server.InboxDir, 0o755); err != nil {
		logger.Error("failed to create inbox", "dir", cfg.Server.InboxDir, "error", err)
		os.Exit(1)
	}

	// gRPC server
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	queue := async.NewProcessorQueue(app.Processor, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(256),
		async.WithProcessTimeout(processTimeout(cfg)),
		async.WithResultHook(xlsxHook(app, logger)),
	)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Server.InboxDir},
		InitialScan: true,
		Debounce:    2 * time.Second,
		SkipHidden:  true,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "dir", cfg.Server.InboxDir, "error", err)
		os.Exit(1)
	}

	go watchDB(ctx, app, hs, logger)
	go func() {
		for {
			select {
			case path, ok := <-events:
				if !ok {
					return
				}
				enqueue(ctx, app, queue, path, logger)
			case err, ok := <-watchErrs:
				if !ok {
					watchErrs = nil
					continue
				}
				logger.Warn("watcher error", "error", err)
			}
		}
	}()

	logger.Info("legal-ocrd listening", "addr", addr, "inbox", cfg.Server.InboxDir, "workers", cfg.Server.Workers)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	hs.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	queue.Shutdown(sctx)
	grpcServer.GracefulStop()
}

func enqueue(ctx context.Context, app *core.App, q async.Queue, path string, logger *slog.Logger) {
	r, err := app.Ingestor.IngestPath(ctx, path)
	if err != nil {
		logger.Warn("ingest failed", "path", path, "error", err)
		return
	}
	if r.Deduplicated {
		logger.Info("skipping already processed file", "path", r.SourcePath, "prior_run_id", r.PriorRunID)
		return
	}
	if err := q.Enqueue(ctx, async.Job{Path: r.SourcePath, Hash: r.HashHex, SubmittedAt: time.Now()}); err != nil {
		logger.Warn("enqueue failed", "path", r.SourcePath, "error", err)
	}
}

func processTimeout(cfg *common.Config) time.Duration {
	if cfg.Pipeline.RunTimeout > 0 {
		return cfg.Pipeline.RunTimeout
	}
	return 30 * time.Minute
}

func xlsxHook(app *core.App, logger *slog.Logger) async.ResultHook {
	return func(_ async.Job, res *pipeline.Result, err error) {
		if err != nil || !app.Config.Output.WriteXLSX {
			return
		}
		xpath := strings.TrimSuffix(res.ArtifactPath, filepath.Ext(res.ArtifactPath)) + ".xlsx"
		if err := app.Export.WriteXLSX(res.Document, xpath); err != nil {
			logger.Error("xlsx export failed", "path", xpath, "error", err)
		}
	}
}

// watchDB flips the health status while the run ledger is unreachable.
func watchDB(ctx context.Context, app *core.App, hs *health.Server, logger *slog.Logger) {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			status := healthpb.HealthCheckResponse_SERVING
			if err := app.DB.HealthCheck(ctx, 3*time.Second); err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
				logger.Warn("database unhealthy", "error", err)
			}
			hs.SetServingStatus("", status)
		}
	}
}
