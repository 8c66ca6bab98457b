// Command impact-service reads mitigation-plans and, for each plan, looks
// up shipments on the affected lane and their inventory, computes
// days-of-cover, stockout probability, and revenue-at-risk, and publishes
// AtRiskShipment plus InventoryExposure atomically per shipment. The
// planning state it reads from is kept current by two sibling consumers
// applying shipment-plans and inventory-snapshots upserts published by the
// planning gateway.
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
	"github.com/arc-self/supplyrisk/internal/impact"
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
		tp, err := telemetry.InitTracer(ctx, "impact-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
		mp, err := telemetry.InitMeterProvider(ctx, "impact-service", endpoint)
		if err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(ctx)
		}
	}

	src := config.Bootstrap(logger)
	redisURL := src.String("REDIS_URL", "redis://localhost:6379/0")
	healthPort := src.String("HEALTH_PORT", "8094")

	store, err := bus.NewRedisStore(redisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer store.Close()
	b := bus.New(store, logger)

	planningStore := impact.NewMemPlanningStore()
	svc := impact.New(planningStore, logger)

	impactWorker := worker.New(worker.Config{
		Stream:   schema.StreamMitigationPlans,
		Group:    "impact-service",
		Consumer: hostname("impact-service"),
	}, b, store, svc.Handler(b), logger)

	shipmentPlanWorker := worker.New(worker.Config{
		Stream:   schema.StreamShipmentPlans,
		Group:    "impact-service-planning-store",
		Consumer: hostname("impact-service"),
	}, b, store, impact.NewShipmentPlanHandler(planningStore), logger)

	inventorySnapshotWorker := worker.New(worker.Config{
		Stream:   schema.StreamInventorySnapshots,
		Group:    "impact-service-planning-store",
		Consumer: hostname("impact-service"),
	}, b, store, impact.NewInventorySnapshotHandler(planningStore), logger)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go func() {
		if err := impactWorker.Run(workerCtx); err != nil {
			logger.Error("impact worker stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := shipmentPlanWorker.Run(workerCtx); err != nil {
			logger.Error("shipment-plan worker stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := inventorySnapshotWorker.Run(workerCtx); err != nil {
			logger.Error("inventory-snapshot worker stopped", zap.Error(err))
		}
	}()

	e := gateway.NewEcho(gateway.Config{ServiceName: "impact-service"}, &gateway.Counters{}, logger)
	go func() {
		logger.Info("impact-service health server listening", zap.String("port", healthPort))
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
	logger.Info("impact-service shut down cleanly")
}

func hostname(fallback string) string {
	h, err := os.Hostname()
	if err != nil {
		return fallback
	}
	return h
}
