package gateway

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
)

type shipmentPlansRequest struct {
	Shipments []schema.ShipmentPlan `json:"shipments"`
}

type inventorySnapshotsRequest struct {
	Snapshots []schema.InventorySnapshot `json:"snapshots"`
}

// RegisterPlanningRoutes mounts POST /shipment-plans and
// POST /inventory-snapshots: both accept a batch of upserts and publish each
// onto its own stream for the planning-store consumer to apply. Planning
// data is an upsert-only key-value contract, so the gateway never reads it
// back — it only relays it onto the bus.
func RegisterPlanningRoutes(e *echo.Echo, b *bus.Bus, maxRecords int, counters *Counters, log *zap.Logger) {
	e.POST("/shipment-plans", func(c echo.Context) error {
		var req shipmentPlansRequest
		if err := c.Bind(&req); err != nil {
			return WriteError(c, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		}
		if maxRecords > 0 && len(req.Shipments) > maxRecords {
			return WriteError(c, http.StatusUnprocessableEntity, "batch_too_large", "shipments batch exceeds the configured per-request limit")
		}

		published := make([]publishedRecord, 0, len(req.Shipments))
		for _, plan := range req.Shipments {
			id, err := bus.Publish(c.Request().Context(), b, schema.StreamShipmentPlans, plan)
			if err != nil {
				log.Error("planning gateway publish failed", zap.String("stream", schema.StreamShipmentPlans), zap.Error(err))
				return WriteError(c, http.StatusInternalServerError, "publish_failed", "failed to publish one or more shipment plans")
			}
			atomic.AddInt64(&counters.SignalsPublished, 1)
			published = append(published, publishedRecord{
				ID:             id,
				Stream:         schema.StreamShipmentPlans,
				PublishedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
			})
		}
		return c.JSON(http.StatusOK, signalsResponse{Published: published})
	})

	e.POST("/inventory-snapshots", func(c echo.Context) error {
		var req inventorySnapshotsRequest
		if err := c.Bind(&req); err != nil {
			return WriteError(c, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		}
		if maxRecords > 0 && len(req.Snapshots) > maxRecords {
			return WriteError(c, http.StatusUnprocessableEntity, "batch_too_large", "snapshots batch exceeds the configured per-request limit")
		}

		published := make([]publishedRecord, 0, len(req.Snapshots))
		for _, snap := range req.Snapshots {
			id, err := bus.Publish(c.Request().Context(), b, schema.StreamInventorySnapshots, snap)
			if err != nil {
				log.Error("planning gateway publish failed", zap.String("stream", schema.StreamInventorySnapshots), zap.Error(err))
				return WriteError(c, http.StatusInternalServerError, "publish_failed", "failed to publish one or more inventory snapshots")
			}
			atomic.AddInt64(&counters.SignalsPublished, 1)
			published = append(published, publishedRecord{
				ID:             id,
				Stream:         schema.StreamInventorySnapshots,
				PublishedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
			})
		}
		return c.JSON(http.StatusOK, signalsResponse{Published: published})
	})
}
