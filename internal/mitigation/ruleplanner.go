package mitigation

import (
	"context"
	"fmt"

	"github.com/arc-self/supplyrisk/internal/schema"
)

// RuleBasedPlanner is the deterministic default Planner: it maps a
// RiskEvaluation's level to a fixed action list for that level (the lane
// only appears in some action descriptions), so it never
// itself fails and is a safe floor beneath any pluggable primary planner.
type RuleBasedPlanner struct{}

// CreatePlan implements Planner.
func (RuleBasedPlanner) CreatePlan(_ context.Context, evaluation schema.RiskEvaluation) (schema.MitigationPlan, error) {
	actions := actionsForLevel(evaluation.RiskLevel, evaluation.Lane)
	return schema.MitigationPlan{
		RiskID:              evaluation.RiskID,
		EventID:             evaluation.EventID,
		Lane:                evaluation.Lane,
		Actions:             actions,
		PredictedDelayHours: delayHoursForLevel(evaluation.RiskLevel),
	}, nil
}

func actionsForLevel(level schema.RiskLevel, lane string) []schema.MitigationAction {
	switch level {
	case schema.RiskCritical:
		return []schema.MitigationAction{
			{Description: fmt.Sprintf("reroute shipments off %s immediately", lane), Owner: "logistics-ops"},
			{Description: "notify affected customers of potential delay", Owner: "customer-success"},
			{Description: "activate backup carrier contract", Owner: "procurement"},
		}
	case schema.RiskHigh:
		return []schema.MitigationAction{
			{Description: fmt.Sprintf("increase buffer stock on %s", lane), Owner: "planning"},
			{Description: "place affected lane on watch list", Owner: "logistics-ops"},
		}
	case schema.RiskMedium:
		return []schema.MitigationAction{
			{Description: fmt.Sprintf("monitor %s for escalation", lane), Owner: "logistics-ops"},
		}
	default:
		return []schema.MitigationAction{
			{Description: "log for trend analysis, no action required", Owner: "planning"},
		}
	}
}

func delayHoursForLevel(level schema.RiskLevel) float64 {
	switch level {
	case schema.RiskCritical:
		return 72
	case schema.RiskHigh:
		return 48
	case schema.RiskMedium:
		return 24
	default:
		return 0
	}
}
