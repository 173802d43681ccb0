package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/varnet/internal/config"
	"github.com/efebarandurmaz/varnet/internal/observability"
	"github.com/efebarandurmaz/varnet/internal/publish"
	"github.com/efebarandurmaz/varnet/internal/server"
	temporalmod "github.com/efebarandurmaz/varnet/internal/temporal"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	if cfg.Audit.Enabled {
		if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
			Enabled:    true,
			OutputPath: cfg.Audit.Path,
		}); err != nil {
			log.Fatalf("audit logger: %v", err)
		}
	}

	ctx := context.Background()
	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "varnet-worker",
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	metrics := observability.NewMetrics()
	backends, err := publish.OpenBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("publish backends: %v", err)
	}

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Publisher:       backends.Publisher(metrics),
		Metrics:         metrics,
		LookupCacheSize: cfg.Scan.LookupCacheSize,
	})

	c, err := temporalmod.Dial(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	logger.Info("Worker started", "task_queue", cfg.Temporal.TaskQueue)

	gs := server.NewGracefulServer(
		&server.HealthConfig{Version: "worker"},
		&server.ShutdownConfig{Timeout: cfg.Server.ShutdownTimeout},
	)
	gs.Health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))
	gs.Shutdown.Register(server.TemporalWorkerShutdownHook(func() {
		w.Stop()
		c.Close()
	}))
	if backends.Graph != nil {
		gs.Shutdown.Register(server.GraphShutdownHook(backends.Graph.Close))
	}
	if backends.Colors != nil {
		gs.Shutdown.Register(server.VectorShutdownHook(backends.Colors.Close))
	}
	gs.Shutdown.Register(server.TracingShutdownHook(tp.Shutdown))
	gs.Shutdown.Register(server.AuditLoggerShutdownHook(observability.Audit().Close))

	// Health and metrics only; scans arrive through the task queue.
	if err := gs.Start(cfg.Server.Addr, metrics.Handler()); err != nil {
		log.Fatalf("health server: %v", err)
	}
	gs.Wait()
	logger.Info("Worker stopped")
}
