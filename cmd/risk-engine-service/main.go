// Command risk-engine-service reads classified-events, resolves impacted
// supply lanes from a configured lane profile table, computes a composite
// risk score, and publishes RiskEvaluation to risk-evaluations.
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
	"github.com/arc-self/supplyrisk/internal/platform/config"
	"github.com/arc-self/supplyrisk/internal/platform/telemetry"
	"github.com/arc-self/supplyrisk/internal/risk"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		tp, err := telemetry.InitTracer(ctx, "risk-engine-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
		mp, err := telemetry.InitMeterProvider(ctx, "risk-engine-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(ctx)
		}
	}

	src := config.Bootstrap(logger)
	redisURL := src.String("REDIS_URL", "redis://localhost:6379/0")
	healthPort := src.String("HEALTH_PORT", "8092")

	store, err := bus.NewRedisStore(redisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer store.Close()
	b := bus.New(store, logger)

	svc := risk.New(defaultLaneConfig(), logger)
	handler := svc.Handler(b)

	w := worker.New(worker.Config{
		Stream:   schema.StreamClassifiedEvents,
		Group:    "risk-engine-service",
		Consumer: hostname("risk-engine-service"),
	}, b, store, handler, logger)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go func() {
		if err := w.Run(workerCtx); err != nil {
			logger.Error("risk engine worker stopped", zap.Error(err))
		}
	}()

	e := gateway.NewEcho(gateway.Config{ServiceName: "risk-engine-service"}, &gateway.Counters{}, logger)
	go func() {
		logger.Info("risk-engine-service health server listening", zap.String("port", healthPort))
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
	logger.Info("risk-engine-service shut down cleanly")
}

func defaultLaneConfig() risk.Config {
	return risk.Config{
		Lanes: []risk.Lane{
			{Name: "US-FL-Miami", Triggers: []string{"miami", "florida", "us-fl"}},
			{Name: "US-CA-LosAngeles", Triggers: []string{"los angeles", "california", "us-ca"}},
			{Name: "IN-MH-Mumbai", Triggers: []string{"mumbai", "maharashtra", "in-mh"}},
			{Name: "CN-SH-Shanghai", Triggers: []string{"shanghai", "cn-sh"}},
		},
		Thresholds: risk.Thresholds{
			Medium:   0.3,
			High:     0.6,
			Critical: 0.85,
		},
		RelevanceFloor: 0.2,
	}
}

func hostname(fallback string) string {
	h, err := os.Hostname()
	if err != nil {
		return fallback
	}
	return h
}
