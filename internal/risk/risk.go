// Package risk implements the risk engine stage: resolves impacted supply
// lanes from impact_region via a configured lane profile
// table, computes a composite score, and publishes RiskEvaluation to
// risk-evaluations — dropping evaluations below the lowest relevance
// threshold.
package risk

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

// Lane is a named origin->destination supply-chain route defined by a
// trigger-term set over geographic text.
type Lane struct {
	Name     string
	Triggers []string // lower-cased substrings; checked trigger-term first
}

// Thresholds buckets a composite score into a RiskLevel.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// Config configures the risk engine.
type Config struct {
	Lanes      []Lane
	Thresholds Thresholds
	// RelevanceFloor is the lowest lane-relevance score that still produces
	// an evaluation; scores below it are dropped.
	RelevanceFloor float64
}

// Service evaluates StructuredRisk events against the configured lane table.
type Service struct {
	cfg Config
	log *zap.Logger
}

// New constructs a Service.
func New(cfg Config, log *zap.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Handler returns the worker.Handler driving this Service.
func (s *Service) Handler(b *bus.Bus) worker.Handler[schema.StructuredRisk] {
	return func(ctx context.Context, structured schema.StructuredRisk) error {
		lane, relevance, ok := s.resolveLane(structured.ImpactRegion)
		if !ok || relevance < s.cfg.RelevanceFloor {
			s.log.Debug("risk evaluation dropped below relevance floor",
				zap.String("classification_id", structured.ClassificationID), zap.Float64("relevance", relevance))
			return nil
		}

		composite := compositeScore(structured.Severity, relevance)
		evaluation := schema.RiskEvaluation{
			RiskID:           uuid.NewString(),
			ClassificationID: structured.ClassificationID,
			EventID:          structured.EventID,
			Lane:             lane,
			LaneRelevance:    round4(relevance),
			CompositeScore:   round4(composite),
			RiskLevel:        bucket(composite, s.cfg.Thresholds),
			Severity:         structured.Severity,
			EvaluatedAtUTC:   time.Now().UTC().Format(time.RFC3339Nano),
		}

		_, err := bus.Publish(ctx, b, schema.StreamRiskEvaluations, evaluation)
		return err
	}
}

// resolveLane finds the lane whose trigger-term set best matches region
// (checked trigger-term first across all lanes; the most specific,
// i.e. longest, matching trigger wins, and among equally long matches the
// first in config order wins). relevance is 1.0 for an exact
// trigger containment and decays with how much of the region text the
// trigger actually covers.
func (s *Service) resolveLane(region string) (lane string, relevance float64, ok bool) {
	lowerRegion := strings.ToLower(region)
	bestTriggerLen := -1

	for _, l := range s.cfg.Lanes {
		for _, trigger := range l.Triggers {
			t := strings.ToLower(trigger)
			if t == "" || !strings.Contains(lowerRegion, t) {
				continue
			}
			if len(t) > bestTriggerLen {
				bestTriggerLen = len(t)
				lane = l.Name
				ok = true
			}
		}
	}
	if !ok {
		return "", 0, false
	}
	if len(lowerRegion) == 0 {
		relevance = 1
	} else {
		relevance = float64(bestTriggerLen) / float64(len(lowerRegion))
		if relevance > 1 {
			relevance = 1
		}
	}
	return lane, relevance, true
}

// compositeScore combines severity and lane relevance into one 0..1 score.
// Equal-weighted average: the simplest combination that keeps the score
// bounded and monotone in both inputs.
func compositeScore(severity, relevance float64) float64 {
	return (severity + relevance) / 2
}

func bucket(score float64, t Thresholds) schema.RiskLevel {
	switch {
	case score >= t.Critical:
		return schema.RiskCritical
	case score >= t.High:
		return schema.RiskHigh
	case score >= t.Medium:
		return schema.RiskMedium
	default:
		return schema.RiskLow
	}
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}
