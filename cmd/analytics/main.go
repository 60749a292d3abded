// Command analytics starts the standalone analytics aggregation service.
//
// It consumes search and tokenization events from Kafka, aggregates them in
// memory (operation counts per algorithm, latency percentiles, cache hit
// rate, BPE merges), snapshots the totals to PostgreSQL when enabled, and
// exposes GET /api/v1/analytics for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer consumer.Close()
	agg := analytics.NewAggregator(consumer)

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	checker := health.NewChecker("analytics")
	checker.Register("kafka", kafka.HealthCheck(cfg.Kafka.Brokers))

	var snapshots analytics.SnapshotLister
	var snapshotDone <-chan struct{}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := aggregator.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("snapshot migration failed", "error", err)
			os.Exit(1)
		}
		if last, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not read latest snapshot", "error", err)
		} else if last != nil {
			slog.Info("previous snapshot found",
				"total_searches", last.TotalSearches,
				"total_tokenizations", last.TotalTokenizations,
			)
		}
		snapshotDone = store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = store
		checker.Register("postgres", db.HealthCheck())
	} else {
		noSnapshots := make(chan struct{})
		close(noSnapshots)
		snapshotDone = noSnapshots
	}

	analyticsHandler := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsHandler.Snapshots)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-shutdownDone
	<-snapshotDone
	slog.Info("analytics service stopped")
}
