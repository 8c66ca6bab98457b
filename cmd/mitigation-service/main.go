// Command mitigation-service reads risk-evaluations, invokes a pluggable
// mitigation planner to produce one plan per evaluation, and publishes to
// mitigation-plans with bounded retry on publish failure. It also runs a
// cron-driven scheduler that publishes hourly/daily ticks, consumed here to
// sweep the risk-evaluations dead-letter stream for operational visibility.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/gateway"
	"github.com/arc-self/supplyrisk/internal/mitigation"
	"github.com/arc-self/supplyrisk/internal/platform/config"
	"github.com/arc-self/supplyrisk/internal/platform/telemetry"
	"github.com/arc-self/supplyrisk/internal/schedule"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		tp, err := telemetry.InitTracer(ctx, "mitigation-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
		mp, err := telemetry.InitMeterProvider(ctx, "mitigation-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(ctx)
		}
	}

	src := config.Bootstrap(logger)
	redisURL := src.String("REDIS_URL", "redis://localhost:6379/0")
	healthPort := src.String("HEALTH_PORT", "8093")
	maxPublishAttempts, err := src.Int("MITIGATION_MAX_PUBLISH_ATTEMPTS", 3)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	store, err := bus.NewRedisStore(redisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer store.Close()
	b := bus.New(store, logger)

	svc := mitigation.New(mitigation.RuleBasedPlanner{}, mitigation.Config{
		MaxPublishAttempts: maxPublishAttempts,
		BaseDelay:          100 * time.Millisecond,
	}, logger)
	handler := svc.Handler(b)

	w := worker.New(worker.Config{
		Stream:   schema.StreamRiskEvaluations,
		Group:    "mitigation-service",
		Consumer: hostname("mitigation-service"),
	}, b, store, handler, logger)

	sweepWorker := worker.New(worker.Config{
		Stream:   schema.StreamSystemTicks,
		Group:    "mitigation-service-dlq-sweep",
		Consumer: hostname("mitigation-service"),
	}, b, store, mitigation.NewDLQSweepHandler(b, logger), logger)

	ticker := schedule.New(b, logger)
	if err := ticker.Start(); err != nil {
		logger.Fatal("failed to start tick scheduler", zap.Error(err))
	}
	defer ticker.Stop()

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go func() {
		if err := w.Run(workerCtx); err != nil {
			logger.Error("mitigation worker stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := sweepWorker.Run(workerCtx); err != nil {
			logger.Error("dlq sweep worker stopped", zap.Error(err))
		}
	}()

	e := gateway.NewEcho(gateway.Config{ServiceName: "mitigation-service"}, &gateway.Counters{}, logger)
	go func() {
		logger.Info("mitigation-service health server listening", zap.String("port", healthPort))
		if err := e.Start(":" + healthPort); err != nil {
			logger.Info("health server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")
	workerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = e.Shutdown(shutdownCtx)
	logger.Info("mitigation-service shut down cleanly")
}

func hostname(fallback string) string {
	h, err := os.Hostname()
	if err != nil {
		return fallback
	}
	return h
}
