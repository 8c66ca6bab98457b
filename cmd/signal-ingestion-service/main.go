// Command signal-ingestion-service polls registered external feeds,
// normalises and dedupes their raw signals, and publishes first-seen
// signals to external-signals. It also runs the stream-consumer side of
// the same pipeline, bridging raw-input-signals (fed by the signal
// gateway and any polling connectors) into the same normalise-dedupe-
// publish path. When CONNECTOR_FEED_URL is set it additionally runs a
// versioned change-feed connector alongside the flat-poll sources, so a
// provider that hands back its own per-item version token skips
// unchanged records before they are ever published.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/connector"
	"github.com/arc-self/supplyrisk/internal/connstate"
	"github.com/arc-self/supplyrisk/internal/gateway"
	"github.com/arc-self/supplyrisk/internal/idempotency"
	"github.com/arc-self/supplyrisk/internal/ingestion"
	"github.com/arc-self/supplyrisk/internal/platform/config"
	"github.com/arc-self/supplyrisk/internal/platform/telemetry"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		tp, err := telemetry.InitTracer(ctx, "signal-ingestion-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
		mp, err := telemetry.InitMeterProvider(ctx, "signal-ingestion-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(ctx)
		}
	}

	cfg := resolveConfig(logger)

	store, err := bus.NewRedisStore(cfg.redisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer store.Close()
	b := bus.New(store, logger)

	dedupeTTL := 24 * time.Hour
	checker := idempotency.New(store, "signal-ingestion", dedupeTTL)

	var sources []ingestion.Source
	if url := os.Getenv("WEATHER_FEED_URL"); url != "" {
		sources = append(sources, ingestion.NewHTTPSource("weather-feed", url, os.Getenv("WEATHER_FEED_API_KEY")))
	}
	if url := os.Getenv("NEWS_FEED_URL"); url != "" {
		sources = append(sources, ingestion.NewHTTPSource("logistics-news-feed", url, os.Getenv("NEWS_FEED_API_KEY")))
	}

	pollCtx, pollCancel := context.WithCancel(ctx)
	defer pollCancel()
	if len(sources) > 0 {
		svc := ingestion.New(sources, store, dedupeTTL, b, logger)
		go svc.Run(pollCtx, cfg.pollInterval)
		logger.Info("polling ingestion sources started", zap.Int("source_count", len(sources)))
	} else {
		logger.Info("no polling sources configured, relying on raw-input-signals consumer only")
	}

	if feedURL := os.Getenv("CONNECTOR_FEED_URL"); feedURL != "" {
		feed := connector.NewHTTPFeed("versioned-port-feed", feedURL, os.Getenv("CONNECTOR_FEED_API_KEY"))
		conn, err := connector.New(connector.Config{
			Name:           "versioned-port-feed",
			PollInterval:   cfg.pollInterval,
			RequestTimeout: 15 * time.Second,
			MaxRetries:     3,
			TargetStream:   schema.StreamRawInputSignals,
		}, feed.Fetch, feed.Transform, connstate.New(store), b, logger)
		if err != nil {
			logger.Fatal("failed to configure connector", zap.Error(err))
		}
		go conn.Run(pollCtx)
		logger.Info("versioned polling connector started", zap.String("feed_url", feedURL))
	}

	normalizerHandler := ingestion.NewNormalizerHandler(checker, b, logger)
	normalizerWorker := worker.New(worker.Config{
		Stream:   schema.StreamRawInputSignals,
		Group:    "signal-ingestion-normalizer",
		Consumer: hostname(),
	}, b, store, normalizerHandler, logger)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go func() {
		if err := normalizerWorker.Run(workerCtx); err != nil {
			logger.Error("normalizer worker stopped", zap.Error(err))
		}
	}()

	e := gateway.NewEcho(gateway.Config{ServiceName: "signal-ingestion-service"}, &gateway.Counters{}, logger)
	go func() {
		logger.Info("signal-ingestion-service health server listening", zap.String("port", cfg.healthPort))
		if err := e.Start(":" + cfg.healthPort); err != nil {
			logger.Info("health server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	pollCancel()
	workerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = e.Shutdown(shutdownCtx)
	logger.Info("signal-ingestion-service shut down cleanly")
}

type serviceConfig struct {
	redisURL     string
	pollInterval time.Duration
	healthPort   string
}

func resolveConfig(logger *zap.Logger) serviceConfig {
	src := config.Bootstrap(logger)
	pollSeconds, err := src.Int("POLL_INTERVAL_SECONDS", 60)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	return serviceConfig{
		redisURL:     src.String("REDIS_URL", "redis://localhost:6379/0"),
		pollInterval: time.Duration(pollSeconds) * time.Second,
		healthPort:   src.String("HEALTH_PORT", "8090"),
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "signal-ingestion-service"
	}
	return h
}
