// Package classification implements the classification stage: reads
// external-signals, runs a primary classifier with a deterministic
// rule-based fallback, and publishes StructuredRisk to classified-events.
package classification

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

// Draft is what a Classifier produces before the pipeline stamps the
// bookkeeping fields (classification_id, model_version, processed_at_utc).
type Draft struct {
	ImpactRegion string
	Category     string
	Severity     float64 // 0..1
	Confidence   float64 // 0..1
	Summary      string
}

// Classifier turns a canonical signal into a risk Draft. Model-backed,
// rule-based, and test-double implementations all satisfy it.
type Classifier interface {
	Classify(ctx context.Context, signal schema.ExternalSignal) (Draft, error)
	ModelVersion() string
}

// Counters tallies classification outcomes.
type Counters struct {
	Received     int64
	Published    int64
	UsedFallback int64
	Failed       int64
}

// Service wires a primary classifier with a fallback behind a confidence
// threshold: an ordered list with a confidence-threshold guard, composed
// rather than inherited.
type Service struct {
	primary             Classifier
	fallback            Classifier
	confidenceThreshold float64
	counters            Counters
	log                 *zap.Logger
}

// NewService constructs a Service. confidenceThreshold gates when the
// fallback is used: a primary result below threshold, or a primary error,
// triggers the fallback.
func NewService(primary, fallback Classifier, confidenceThreshold float64, log *zap.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, confidenceThreshold: confidenceThreshold, log: log}
}

// Counters returns a snapshot of the running totals.
func (s *Service) Counters() Counters { return s.counters }

// Handler returns the worker.Handler that drives this Service from the
// stream-consumer worker.
func (s *Service) Handler(b *bus.Bus) worker.Handler[schema.ExternalSignal] {
	return func(ctx context.Context, signal schema.ExternalSignal) error {
		s.counters.Received++

		draft, usedFallback, err := s.classify(ctx, signal)
		if err != nil {
			s.counters.Failed++
			return err
		}

		risk := schema.StructuredRisk{
			ClassificationID:         uuid.NewString(),
			EventID:                  signal.EventID,
			SourceType:               signal.SourceType,
			ImpactRegion:             draft.ImpactRegion,
			Category:                 draft.Category,
			Severity:                 draft.Severity,
			ClassificationConfidence: draft.Confidence,
			UsedFallback:             usedFallback,
			ModelVersion:             s.modelVersion(usedFallback),
			ProcessedAtUTC:           time.Now().UTC().Format(time.RFC3339Nano),
			Summary:                  draft.Summary,
		}

		if _, err := bus.Publish(ctx, b, schema.StreamClassifiedEvents, risk); err != nil {
			s.counters.Failed++
			return err
		}

		s.counters.Published++
		if usedFallback {
			s.counters.UsedFallback++
		}
		return nil
	}
}

func (s *Service) classify(ctx context.Context, signal schema.ExternalSignal) (Draft, bool, error) {
	draft, err := s.primary.Classify(ctx, signal)
	if err == nil && draft.Confidence >= s.confidenceThreshold {
		return draft, false, nil
	}
	if err != nil {
		s.log.Warn("primary classifier failed, using fallback", zap.String("event_id", signal.EventID), zap.Error(err))
	} else {
		s.log.Debug("primary classifier below confidence threshold, using fallback",
			zap.String("event_id", signal.EventID), zap.Float64("confidence", draft.Confidence))
	}
	fallbackDraft, fbErr := s.fallback.Classify(ctx, signal)
	if fbErr != nil {
		return Draft{}, true, fbErr
	}
	return fallbackDraft, true, nil
}

func (s *Service) modelVersion(usedFallback bool) string {
	if usedFallback {
		return s.fallback.ModelVersion()
	}
	return s.primary.ModelVersion()
}

// RuleBasedClassifier is the deterministic fallback classifier. It derives
// a category and severity from the first matching rule in raw_content
// (UNCATEGORIZED at 0.3 when none matches) and takes its confidence from the
// signal's own reported confidence, so it never itself fails and
// is a safe floor beneath any pluggable primary.
type RuleBasedClassifier struct {
	// Rules maps a lower-cased trigger substring to the category it implies.
	// Checked in order; first match wins.
	Rules []Rule
}

// Rule is one trigger-term-to-category mapping for RuleBasedClassifier.
type Rule struct {
	Trigger  string
	Category string
	Severity float64
}

// ModelVersion identifies this classifier in StructuredRisk.ModelVersion.
func (RuleBasedClassifier) ModelVersion() string { return "rule-based-v1" }

// Classify implements Classifier.
func (c RuleBasedClassifier) Classify(_ context.Context, signal schema.ExternalSignal) (Draft, error) {
	content := strings.ToLower(signal.RawContent)
	for _, rule := range c.Rules {
		if strings.Contains(content, rule.Trigger) {
			return Draft{
				ImpactRegion: signal.GeographicScope,
				Category:     rule.Category,
				Severity:     rule.Severity,
				Confidence:   signal.SignalConfidence,
				Summary:      signal.RawContent,
			}, nil
		}
	}
	return Draft{
		ImpactRegion: signal.GeographicScope,
		Category:     "UNCATEGORIZED",
		Severity:     0.3,
		Confidence:   signal.SignalConfidence,
		Summary:      signal.RawContent,
	}, nil
}
