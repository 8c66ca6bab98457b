// Command classification-service reads external-signals, runs a primary
// classifier (an HTTP-backed inference endpoint, if configured) with a
// deterministic rule-based fallback, and publishes StructuredRisk to
// classified-events.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/classification"
	"github.com/arc-self/supplyrisk/internal/gateway"
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
		tp, err := telemetry.InitTracer(ctx, "classification-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
		mp, err := telemetry.InitMeterProvider(ctx, "classification-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(ctx)
		}
	}

	src := config.Bootstrap(logger)
	confidenceThreshold, err := parseFloatEnv(src, "CLASSIFICATION_CONFIDENCE_THRESHOLD", 0.6)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	redisURL := src.String("REDIS_URL", "redis://localhost:6379/0")
	healthPort := src.String("HEALTH_PORT", "8091")

	store, err := bus.NewRedisStore(redisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer store.Close()
	b := bus.New(store, logger)

	var primary classification.Classifier
	if baseURL := os.Getenv("CLASSIFIER_BASE_URL"); baseURL != "" {
		primary = classification.NewHTTPClassifier(baseURL, os.Getenv("CLASSIFIER_API_KEY"), "remote-v1")
	} else {
		primary = defaultRuleBasedClassifier()
		logger.Info("CLASSIFIER_BASE_URL not set, primary classifier is rule-based")
	}
	fallback := defaultRuleBasedClassifier()

	svc := classification.NewService(primary, fallback, confidenceThreshold, logger)
	handler := svc.Handler(b)

	w := worker.New(worker.Config{
		Stream:   schema.StreamExternalSignals,
		Group:    "classification-service",
		Consumer: hostname("classification-service"),
	}, b, store, handler, logger)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go func() {
		if err := w.Run(workerCtx); err != nil {
			logger.Error("classification worker stopped", zap.Error(err))
		}
	}()

	e := gateway.NewEcho(gateway.Config{ServiceName: "classification-service"}, &gateway.Counters{}, logger)
	go func() {
		logger.Info("classification-service health server listening", zap.String("port", healthPort))
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
	logger.Info("classification-service shut down cleanly")
}

func defaultRuleBasedClassifier() classification.RuleBasedClassifier {
	return classification.RuleBasedClassifier{
		Rules: []classification.Rule{
			{Trigger: "storm", Category: "WEATHER_DELAY", Severity: 0.7},
			{Trigger: "hurricane", Category: "WEATHER_DELAY", Severity: 0.95},
			{Trigger: "flood", Category: "WEATHER_DELAY", Severity: 0.8},
			{Trigger: "strike", Category: "LABOR_DISRUPTION", Severity: 0.6},
			{Trigger: "port closure", Category: "PORT_DISRUPTION", Severity: 0.85},
			{Trigger: "congestion", Category: "TRAFFIC_DELAY", Severity: 0.4},
			{Trigger: "accident", Category: "TRAFFIC_DELAY", Severity: 0.5},
		},
	}
}

func parseFloatEnv(src *config.Source, key string, def float64) (float64, error) {
	v := src.String(key, "")
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func hostname(fallback string) string {
	h, err := os.Hostname()
	if err != nil {
		return fallback
	}
	return h
}
