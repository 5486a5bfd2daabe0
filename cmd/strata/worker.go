package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/okdsgnr/Strata/service/audit"
	"github.com/okdsgnr/Strata/service/config"
	"github.com/okdsgnr/Strata/service/db"
	"github.com/okdsgnr/Strata/service/metrics"
	natspkg "github.com/okdsgnr/Strata/service/nats"
	"github.com/okdsgnr/Strata/service/price"
	"github.com/okdsgnr/Strata/service/solana"
	"github.com/okdsgnr/Strata/service/temporal"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the Temporal audit worker",
		Description: `Starts the long-running worker that executes scheduled token audits.

All configuration comes from the environment (DATABASE_URL, SOLANA_RPC_URL,
NATS_URL, TEMPORAL_HOST, ...). The worker serves Prometheus metrics on
METRICS_ADDR and blocks until interrupted.`,
		Action: func(c *cli.Context) error {
			return runWorker()
		},
	}
}

func runWorker() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting audit worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to database")

	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	store := db.NewStore(pool, metricsCollector)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	// Metrics HTTP server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("starting metrics HTTP server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// Solana RPC client
	chain := solana.NewClient(rpc.New(cfg.SolanaRPCURL), cfg.SolanaRPCURL, metricsCollector, logger)
	logger.Info("initialized solana RPC client", "endpoint", cfg.SolanaRPCURL)

	// Price oracle with Jupiter -> Birdeye -> DexScreener fallback
	oracle := price.NewOracle(price.OracleConfig{
		Cache:              price.NewCache(cfg.PriceCacheTTL, price.DefaultMetadataTTL, nil),
		JupiterBaseURL:     cfg.JupiterBaseURL,
		BirdeyeBaseURL:     cfg.BirdeyeBaseURL,
		BirdeyeAPIKey:      cfg.BirdeyeAPIKey,
		DexScreenerBaseURL: cfg.DexScreenerBaseURL,
		Metrics:            metricsCollector,
		Logger:             logger,
	})

	// NATS publisher for snapshot events
	publisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
	if err != nil {
		return fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	defer publisher.Close()
	logger.Info("connected to NATS", "url", cfg.NATSURL)

	// Audit engine
	auditService := audit.NewService(audit.ServiceConfig{
		Balances:         chain,
		Supply:           chain,
		Prices:           oracle,
		Metadata:         oracle,
		Labels:           store,
		Snapshots:        store,
		Whales:           audit.NewWhaleTracker(store, metricsCollector, logger),
		Searches:         store,
		Publisher:        publisher,
		Metrics:          metricsCollector,
		Logger:           logger,
		FetchConcurrency: cfg.FetchConcurrency,
	})

	// Temporal worker
	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		AuditService:      auditService,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create temporal worker: %w", err)
	}

	logger.Info("worker started, waiting for audit workflows")
	if err := worker.Start(); err != nil {
		return err
	}

	logger.Info("worker shut down cleanly")
	return nil
}

// setupLogger creates a JSON slog logger at the configured level.
func setupLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	}))
}
