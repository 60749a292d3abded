// Command searcher serves the search and tokenization algorithms over HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/internal/searcher/validator"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"tie_break", cfg.Tokenizer.TieBreak,
		"redis", cfg.Redis.Enabled,
		"analytics", cfg.Analytics.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, executor.Algorithms())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	checker := health.NewChecker("searcher")

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		retryCfg := resilience.RetryConfig{MaxAttempts: cfg.Redis.ConnectAttempts, Retryable: pkgredis.IsTransient}
		err := resilience.Retry(ctx, "redis connect", retryCfg, func() error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, caching in process only", "error", err)
			checker.Register("redis", health.Static(health.StatusDegraded, "unavailable at startup"))
		} else {
			defer redisClient.Close()
			checker.Register("redis", redisClient.HealthCheck())
		}
	} else {
		checker.Register("redis", health.Static(health.StatusUp, "disabled"))
	}

	var resultCache *cache.ResultCache
	if cfg.Search.CacheResults {
		var remote cache.Store
		if redisClient != nil {
			remote = redisClient
		}
		resultCache = cache.New(remote, cfg.Redis, m)
		checker.Register("cache", resultCache.HealthCheck())
		slog.Info("result cache enabled",
			"remote", redisClient != nil,
			"ttl", cfg.Redis.CacheTTL,
			"local_size", cfg.Redis.LocalCacheSize,
		)
	}

	exec, err := executor.New(cfg.Search, cfg.Tokenizer, m)
	if err != nil {
		slog.Error("failed to create executor", "error", err)
		os.Exit(1)
	}

	// Stats for this instance are always kept in process; Kafka publishing
	// is added when analytics are enabled.
	localStats := analytics.NewAggregator(nil)
	trackers := []handler.Tracker{localStats}
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{
			BufferSize: cfg.Analytics.BufferSize,
			OnDrop:     m.AnalyticsDropped.Inc,
		})
		// Stopped by the deferred Close once the server has drained.
		collector.Start(context.Background())
		defer collector.Close()
		trackers = append(trackers, collector)
		checker.Register("kafka", kafka.HealthCheck(cfg.Kafka.Brokers))
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	h := handler.New(exec, resultCache, validator.LimitsFromConfig(cfg), cfg.Server.MaxBodyBytes, trackers...)
	analyticsH := analytics.NewHandler(localStats, nil)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, time.Minute)
		go limiter.RunCleanup(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("search service stopped")
}
