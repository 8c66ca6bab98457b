// Command planning-gateway is the HTTP ingress for domain-snapshot
// upserts: shipment plans and inventory snapshots. It publishes each
// accepted record onto shipment-plans / inventory-snapshots for the
// impact service's planning-store consumers to apply.
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
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		tp, err := telemetry.InitTracer(ctx, "planning-gateway", endpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
		mp, err := telemetry.InitMeterProvider(ctx, "planning-gateway", endpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(ctx)
		}
	}

	src := config.Bootstrap(logger)
	redisURL := src.String("REDIS_URL", "redis://localhost:6379/0")
	port := src.String("PORT", "8081")
	maxRequestBytes, err := src.Int64("MAX_REQUEST_BYTES", 1<<20)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	maxRecords, err := src.Int("MAX_RECORDS_PER_REQUEST", 500)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	authToken := src.String("GATEWAY_AUTH_TOKEN", "")

	store, err := bus.NewRedisStore(redisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer store.Close()
	b := bus.New(store, logger)

	counters := &gateway.Counters{}
	e := gateway.NewEcho(gateway.Config{
		ServiceName:      "planning-gateway",
		MaxRequestBytes:  maxRequestBytes,
		MaxRecordsPerReq: maxRecords,
		AuthToken:        authToken,
	}, counters, logger)
	gateway.RegisterPlanningRoutes(e, b, maxRecords, counters, logger)

	go func() {
		logger.Info("planning-gateway listening", zap.String("port", port))
		if err := e.Start(":" + port); err != nil {
			logger.Info("HTTP server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown error", zap.Error(err))
	}
	logger.Info("planning-gateway shut down cleanly")
}
