package impact

import (
	"context"
	"sync"

	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

// MemPlanningStore is the in-memory reference implementation of
// PlanningStore: domain snapshots never need a database here, only a
// queryable upsert surface fed by the planning gateway's streams.
type MemPlanningStore struct {
	mu         sync.RWMutex
	byLane     map[string][]Shipment // lane -> shipments, insertion order
	shipments  map[string]Shipment   // shipment_id -> shipment (for lane lookups on update)
	inventory  map[string]Inventory  // shipment_id -> inventory
}

// NewMemPlanningStore constructs an empty MemPlanningStore.
func NewMemPlanningStore() *MemPlanningStore {
	return &MemPlanningStore{
		byLane:    make(map[string][]Shipment),
		shipments: make(map[string]Shipment),
		inventory: make(map[string]Inventory),
	}
}

// UpsertShipment inserts or replaces the shipment record for shipmentID.
func (m *MemPlanningStore) UpsertShipment(s Shipment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.shipments[s.ShipmentID]; exists && old.Lane != s.Lane {
		m.removeFromLane(old.Lane, s.ShipmentID)
	}
	m.shipments[s.ShipmentID] = s
	if !containsShipment(m.byLane[s.Lane], s.ShipmentID) {
		m.byLane[s.Lane] = append(m.byLane[s.Lane], s)
	} else {
		for i, existing := range m.byLane[s.Lane] {
			if existing.ShipmentID == s.ShipmentID {
				m.byLane[s.Lane][i] = s
			}
		}
	}
}

// UpsertInventory inserts or replaces the inventory record for shipmentID.
func (m *MemPlanningStore) UpsertInventory(shipmentID string, inv Inventory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory[shipmentID] = inv
}

// ShipmentsOnLane implements PlanningStore.
func (m *MemPlanningStore) ShipmentsOnLane(_ context.Context, lane string) ([]Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Shipment, len(m.byLane[lane]))
	copy(out, m.byLane[lane])
	return out, nil
}

// InventoryForShipment implements PlanningStore.
func (m *MemPlanningStore) InventoryForShipment(_ context.Context, shipmentID string) (Inventory, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.inventory[shipmentID]
	return inv, ok, nil
}

func (m *MemPlanningStore) removeFromLane(lane, shipmentID string) {
	list := m.byLane[lane]
	out := list[:0]
	for _, s := range list {
		if s.ShipmentID != shipmentID {
			out = append(out, s)
		}
	}
	m.byLane[lane] = out
}

func containsShipment(list []Shipment, shipmentID string) bool {
	for _, s := range list {
		if s.ShipmentID == shipmentID {
			return true
		}
	}
	return false
}

// NewShipmentPlanHandler returns the worker.Handler that keeps store's
// shipment side up to date by consuming shipment-plans.
func NewShipmentPlanHandler(store *MemPlanningStore) worker.Handler[schema.ShipmentPlan] {
	return func(_ context.Context, plan schema.ShipmentPlan) error {
		store.UpsertShipment(Shipment{ShipmentID: plan.ShipmentID, Lane: plan.Lane, UnitRevenueINR: plan.UnitRevenueINR})
		return nil
	}
}

// NewInventorySnapshotHandler returns the worker.Handler that keeps store's
// inventory side up to date by consuming inventory-snapshots.
func NewInventorySnapshotHandler(store *MemPlanningStore) worker.Handler[schema.InventorySnapshot] {
	return func(_ context.Context, snap schema.InventorySnapshot) error {
		store.UpsertInventory(snap.ShipmentID, Inventory{
			OnHand: snap.OnHand, InTransit: snap.InTransit,
			DailyDemand: snap.DailyDemand, SafetyStock: snap.SafetyStock,
		})
		return nil
	}
}
