package schema

import "fmt"

// ExternalSignal is the canonical, validated form of a RawExternalSignal.
// Every field is required; Validate enforces that.
type ExternalSignal struct {
	EventID           string     `json:"event_id"`
	SourceType        SourceType `json:"source_type"`
	RawContent        string     `json:"raw_content"`
	SourceReference   string     `json:"source_reference"`
	GeographicScope   string     `json:"geographic_scope"`
	TimestampUTC      string     `json:"timestamp_utc"`
	IngestionTimeUTC  string     `json:"ingestion_time_utc"`
	SignalConfidence  float64    `json:"signal_confidence"`
}

// Validate checks the canonical-signal invariants. It returns a descriptive
// error (wrapped with errs.ErrSchema by the caller) on the first violation.
func (s ExternalSignal) Validate() error {
	if s.EventID == "" {
		return fmt.Errorf("event_id must not be empty")
	}
	if !ValidSourceType(s.SourceType) {
		return fmt.Errorf("source_type %q is not one of WEATHER|NEWS|SOCIAL|TRAFFIC", s.SourceType)
	}
	if s.RawContent == "" {
		return fmt.Errorf("raw_content must not be empty")
	}
	if s.SourceReference == "" {
		return fmt.Errorf("source_reference must not be empty")
	}
	if s.GeographicScope == "" {
		return fmt.Errorf("geographic_scope must not be empty")
	}
	if s.TimestampUTC == "" {
		return fmt.Errorf("timestamp_utc must not be empty")
	}
	if s.IngestionTimeUTC == "" {
		return fmt.Errorf("ingestion_time_utc must not be empty")
	}
	if s.SignalConfidence < 0 || s.SignalConfidence > 1 {
		return fmt.Errorf("signal_confidence %v is outside [0,1]", s.SignalConfidence)
	}
	return nil
}

// StructuredRisk is the output of the classification stage.
type StructuredRisk struct {
	ClassificationID         string     `json:"classification_id"`
	EventID                  string     `json:"event_id"`
	SourceType               SourceType `json:"source_type"`
	ImpactRegion             string     `json:"impact_region"`
	Category                 string     `json:"category"`
	Severity                 float64    `json:"severity"` // 0..1
	ClassificationConfidence float64    `json:"classification_confidence"`
	UsedFallback             bool       `json:"used_fallback"`
	ModelVersion             string     `json:"model_version"`
	ProcessedAtUTC           string     `json:"processed_at_utc"`
	Summary                  string     `json:"summary"`
}

// RiskEvaluation is the output of the risk engine stage.
type RiskEvaluation struct {
	RiskID         string    `json:"risk_id"`
	ClassificationID string  `json:"classification_id"`
	EventID        string    `json:"event_id"`
	Lane           string    `json:"lane"`
	LaneRelevance  float64   `json:"lane_relevance"`
	CompositeScore float64   `json:"composite_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Severity       float64   `json:"severity"`
	EvaluatedAtUTC string    `json:"evaluated_at_utc"`
}

// MitigationAction is one step of a MitigationPlan.
type MitigationAction struct {
	Description string `json:"description"`
	Owner       string `json:"owner,omitempty"`
	DueBy       string `json:"due_by,omitempty"`
}

// MitigationPlan is the output of the mitigation-planning stage.
type MitigationPlan struct {
	PlanID               string              `json:"plan_id"`
	RiskID               string              `json:"risk_id"`
	EventID              string              `json:"event_id"`
	Lane                 string              `json:"lane"`
	Actions              []MitigationAction  `json:"actions"`
	PredictedDelayHours  float64             `json:"predicted_delay_hours"`
	CreatedAtUTC         string              `json:"created_at_utc"`
}

// AtRiskShipment is one output of the planning-impact stage.
type AtRiskShipment struct {
	ShipmentID            string  `json:"shipment_id"`
	PlanID                string  `json:"plan_id"`
	Lane                  string  `json:"lane"`
	StockoutProbability   float64 `json:"stockout_probability"` // 4dp
	ProjectedStockoutDate string  `json:"projected_stockout_date,omitempty"`
	RevenueAtRiskINR      float64 `json:"revenue_at_risk_inr"` // 2dp
	ComputedAtUTC         string  `json:"computed_at_utc"`
}

// InventoryExposure is the sibling output of the planning-impact stage,
// published atomically alongside AtRiskShipment for the same shipment.
type InventoryExposure struct {
	ShipmentID      string  `json:"shipment_id"`
	PlanID          string  `json:"plan_id"`
	DaysOfCover     float64 `json:"days_of_cover"`
	EffectiveGapDays float64 `json:"effective_gap_days"`
	ComputedAtUTC   string  `json:"computed_at_utc"`
}

// ShipmentPlan is a domain-snapshot upsert for one planned shipment,
// published by the planning gateway onto shipment-plans. The core only
// consumes the key-value upsert it represents; durable storage of the
// snapshot itself lives outside this module.
type ShipmentPlan struct {
	ShipmentID     string  `json:"shipment_id"`
	Lane           string  `json:"lane"`
	UnitRevenueINR float64 `json:"unit_revenue_inr"`
}

// InventorySnapshot is a domain-snapshot upsert for one shipment's inventory
// position, published by the planning gateway onto inventory-snapshots.
type InventorySnapshot struct {
	ShipmentID  string  `json:"shipment_id"`
	OnHand      float64 `json:"on_hand"`
	InTransit   float64 `json:"in_transit"`
	DailyDemand float64 `json:"daily_demand"`
	SafetyStock float64 `json:"safety_stock"`
}

// SystemTick is a scheduled heartbeat published onto system-ticks by a
// cron-driven scheduler. Event is "cron.hourly" or "cron.daily"; services
// that need periodic background work (the mitigation service's dead-letter
// sampling sweep) subscribe to it instead of running their own timers.
type SystemTick struct {
	Event        string `json:"event"`
	TimestampUTC string `json:"timestamp_utc"`
}
