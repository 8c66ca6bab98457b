package impact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/impact"
	"github.com/arc-self/supplyrisk/internal/schema"
)

type fakeStore struct {
	shipments map[string][]impact.Shipment
	inventory map[string]impact.Inventory
}

func (f *fakeStore) ShipmentsOnLane(ctx context.Context, lane string) ([]impact.Shipment, error) {
	return f.shipments[lane], nil
}
func (f *fakeStore) InventoryForShipment(ctx context.Context, shipmentID string) (impact.Inventory, bool, error) {
	inv, ok := f.inventory[shipmentID]
	return inv, ok, nil
}

func TestHandler_WorkedExample(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	fake := &fakeStore{
		shipments: map[string][]impact.Shipment{
			"US-FL-Miami": {{ShipmentID: "sh1", Lane: "US-FL-Miami", UnitRevenueINR: 100}},
		},
		inventory: map[string]impact.Inventory{
			"sh1": {OnHand: 10, InTransit: 0, DailyDemand: 5, SafetyStock: 5},
		},
	}

	svc := impact.New(fake, zaptest.NewLogger(t))
	plan := schema.MitigationPlan{PlanID: "p1", Lane: "US-FL-Miami", PredictedDelayHours: 48}
	require.NoError(t, svc.Handler(b)(ctx, plan))

	atRisk, err := bus.ReadRecent[schema.AtRiskShipment](ctx, b, schema.StreamAtRiskShipments, 10)
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	assert.Equal(t, 0.5, atRisk[0].Message.StockoutProbability)
	assert.Equal(t, 500.0, atRisk[0].Message.RevenueAtRiskINR)

	exposure, err := bus.ReadRecent[schema.InventoryExposure](ctx, b, schema.StreamInventoryExposures, 10)
	require.NoError(t, err)
	require.Len(t, exposure, 1)
	assert.Equal(t, 2.0, exposure[0].Message.DaysOfCover)
	assert.Equal(t, 1.0, exposure[0].Message.EffectiveGapDays)
}

func TestHandler_MissingInventorySkipsWithoutError(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	fake := &fakeStore{
		shipments: map[string][]impact.Shipment{"lane": {{ShipmentID: "sh1", Lane: "lane"}}},
		inventory: map[string]impact.Inventory{},
	}
	svc := impact.New(fake, zaptest.NewLogger(t))
	err := svc.Handler(b)(ctx, schema.MitigationPlan{Lane: "lane"})
	require.NoError(t, err)

	out, err := bus.ReadRecent[schema.AtRiskShipment](ctx, b, schema.StreamAtRiskShipments, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHandler_NoShipmentsOnLaneSkipsWithoutError(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	fake := &fakeStore{shipments: map[string][]impact.Shipment{}, inventory: map[string]impact.Inventory{}}
	svc := impact.New(fake, zaptest.NewLogger(t))
	require.NoError(t, svc.Handler(b)(ctx, schema.MitigationPlan{Lane: "unknown"}))
}
