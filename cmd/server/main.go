// Package main is the entry point for the syncbridge API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"syncbridge/internal/config"
	"syncbridge/internal/controller"
	"syncbridge/internal/controller/middleware"
	"syncbridge/internal/controller/handlers"
	"syncbridge/internal/engine"
	"syncbridge/internal/ledger"
	"syncbridge/internal/logger"
	"syncbridge/internal/notify/natsstan"
	"syncbridge/internal/observability"
	"syncbridge/internal/store/postgres"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: syncbridge.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	slog.SetDefault(log)

	if err := run(cfg, *migrateFlag, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited properly")
}

func run(cfg *config.Config, migrate bool, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Postgres (the "Store")
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	// Run migrations if requested
	if migrate {
		log.Info("running database migrations")
		version, err := postgres.Migrate(store.DB())
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations completed successfully", "version", version)
	}

	// Tracing
	if cfg.TracingEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "syncbridge",
			Endpoint:    cfg.OTELEndpoint,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Warn("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("failed to shutdown metrics", "error", err)
		}
	}()

	syncMetrics, err := observability.NewSyncMetrics()
	if err != nil {
		return fmt.Errorf("init sync metrics: %w", err)
	}
	// Queries the DB only when scraped.
	if err := observability.RegisterLedgerGauge(store.CountLedgerEntries); err != nil {
		log.Warn("failed to register ledger gauge", "error", err)
	}

	opts := []engine.Option{engine.WithMetrics(syncMetrics), engine.WithLogger(log)}
	if cfg.NotifyEnabled {
		pub, err := natsstan.Connect(cfg.STANClusterID, cfg.STANClientID, cfg.NATSURL, cfg.NotifySubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect to NATS streaming: %w", err)
		}
		defer pub.Close()
		opts = append(opts, engine.WithNotifier(pub))
		log.Info("publishing created events", "nats_url", cfg.NATSURL, "prefix", cfg.NotifySubjectPrefix)
	}

	history := ledger.New(store)
	dispatcher := engine.NewDispatcher(history, engine.NewProcessor(store), opts...)

	h := handlers.New(handlers.Deps{
		Syncer:       dispatcher,
		History:      history,
		Prober:       store,
		Logger:       log,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, h, controller.Options{
		MetricsHandler: metricsHandler,
		Logger:         log,
		SyncRateLimit:  cfg.SyncRateLimit,
		SyncRateBurst:  cfg.SyncRateBurst,
		TrustedProxies: trusted,
	})

	log.Info("syncbridge starting", "addr", addr)

	// Run shuts the server down gracefully once ctx is cancelled by a signal.
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
