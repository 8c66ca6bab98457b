// Package impact implements the planning-impact stage: for
// each mitigation plan, looks up shipments on the affected lane and their
// inventory, computes days-of-cover, clamped stockout probability, and
// revenue-at-risk, and publishes AtRiskShipment plus InventoryExposure
// atomically per shipment.
package impact

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

// Shipment is a planned shipment on a lane, as held by the planning state
// store. Durable persistence of domain snapshots lives outside this
// package; PlanningStore is the key-value upsert contract this package
// consumes instead of owning that persistence itself.
type Shipment struct {
	ShipmentID     string
	Lane           string
	UnitRevenueINR float64
}

// Inventory is the inventory snapshot backing one shipment's lane.
type Inventory struct {
	OnHand      float64
	InTransit   float64
	DailyDemand float64
	SafetyStock float64
}

// PlanningStore resolves the shipments and inventory a mitigation plan's
// lane affects. A missing shipment or inventory record for a lane is a
// non-error "nothing to project" outcome.
type PlanningStore interface {
	ShipmentsOnLane(ctx context.Context, lane string) ([]Shipment, error)
	InventoryForShipment(ctx context.Context, shipmentID string) (Inventory, bool, error)
}

// Service drives the planning-impact computation behind a stream-consumer
// handler.
type Service struct {
	store PlanningStore
	log   *zap.Logger
}

// New constructs a Service.
func New(store PlanningStore, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Handler returns the worker.Handler driving this Service.
func (s *Service) Handler(b *bus.Bus) worker.Handler[schema.MitigationPlan] {
	return func(ctx context.Context, plan schema.MitigationPlan) error {
		shipments, err := s.store.ShipmentsOnLane(ctx, plan.Lane)
		if err != nil {
			return err
		}
		if len(shipments) == 0 {
			s.log.Debug("no shipments on lane, skipping", zap.String("lane", plan.Lane), zap.String("plan_id", plan.PlanID))
			return nil
		}

		for _, shipment := range shipments {
			inventory, found, err := s.store.InventoryForShipment(ctx, shipment.ShipmentID)
			if err != nil {
				return err
			}
			if !found {
				s.log.Debug("no inventory for shipment, skipping",
					zap.String("shipment_id", shipment.ShipmentID), zap.String("plan_id", plan.PlanID))
				continue
			}

			atRisk, exposure := project(plan, shipment, inventory)

			// Both publishes for this shipment are issued before moving to
			// the next shipment, so a reader never observes one without the other.
			if _, err := bus.Publish(ctx, b, schema.StreamAtRiskShipments, atRisk); err != nil {
				return err
			}
			if _, err := bus.Publish(ctx, b, schema.StreamInventoryExposures, exposure); err != nil {
				return err
			}
		}
		return nil
	}
}

// project computes the planning-impact math:
// days_of_cover = (on_hand+in_transit)/daily_demand,
// safety_days = safety_stock/daily_demand (SafetyStock is held in units,
// converted to the same day units as days_of_cover before subtracting),
// delay_days = predicted_delay_hours/24,
// effective_gap = max(0, delay_days - (days_of_cover - safety_days)),
// stockout_probability = effective_gap / max(1, delay_days), clamped to
// [0,1], revenue_at_risk = effective_gap * daily_demand * unit_revenue.
func project(plan schema.MitigationPlan, shipment Shipment, inv Inventory) (schema.AtRiskShipment, schema.InventoryExposure) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	daysOfCover := safeDiv(inv.OnHand+inv.InTransit, inv.DailyDemand)
	safetyDays := safeDiv(inv.SafetyStock, inv.DailyDemand)
	delayDays := plan.PredictedDelayHours / 24

	effectiveGap := delayDays - (daysOfCover - safetyDays)
	if effectiveGap < 0 {
		effectiveGap = 0
	}

	denominator := delayDays
	if denominator < 1 {
		denominator = 1
	}
	stockoutProbability := clamp01(effectiveGap / denominator)

	revenueAtRisk := effectiveGap * inv.DailyDemand * shipment.UnitRevenueINR

	var projectedStockoutDate string
	if stockoutProbability > 0 {
		projectedStockoutDate = time.Now().UTC().Add(time.Duration(daysOfCover*24) * time.Hour).Format(time.RFC3339Nano)
	}

	atRisk := schema.AtRiskShipment{
		ShipmentID:             shipment.ShipmentID,
		PlanID:                 plan.PlanID,
		Lane:                   plan.Lane,
		StockoutProbability:    round(stockoutProbability, 4),
		ProjectedStockoutDate:  projectedStockoutDate,
		RevenueAtRiskINR:       round(revenueAtRisk, 2),
		ComputedAtUTC:          now,
	}
	exposure := schema.InventoryExposure{
		ShipmentID:       shipment.ShipmentID,
		PlanID:           plan.PlanID,
		DaysOfCover:       round(daysOfCover, 2),
		EffectiveGapDays: round(effectiveGap, 2),
		ComputedAtUTC:    now,
	}
	return atRisk, exposure
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round(v float64, places int) float64 {
	factor := 1.0
	for i := 0; i < places; i++ {
		factor *= 10
	}
	return float64(int64(v*factor+0.5)) / factor
}
