// Package ingestion implements the signal ingestion service: poll
// registered sources, normalise each raw signal to canonical form,
// dedupe by event_id, and publish first-seen signals to external-signals.
package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/idempotency"
	"github.com/arc-self/supplyrisk/internal/normalize"
	"github.com/arc-self/supplyrisk/internal/schema"
)

// Source is one registered pollable provider of raw signals. Unlike the
// connector framework (which tracks per-item versions to skip unchanged
// items), a Source returns only the records the caller should attempt to
// ingest on this cycle — change detection, if any, is the source's own
// concern.
type Source interface {
	Name() string
	Poll(ctx context.Context) ([]schema.RawExternalSignal, error)
}

// Summary reports the outcome of one ingestion cycle.
type Summary struct {
	Polled       int
	Normalized   int
	Deduplicated int
	Published    int
	Failed       int
}

// Service drives registered Sources through normalise -> dedupe -> publish.
type Service struct {
	sources []Source
	checker *idempotency.Checker
	bus     *bus.Bus
	log     *zap.Logger
}

// New constructs a Service. dedupeTTL should be comfortably larger than the
// pipeline's end-to-end latency.
func New(sources []Source, store bus.Store, dedupeTTL time.Duration, b *bus.Bus, log *zap.Logger) *Service {
	return &Service{
		sources: sources,
		checker: idempotency.New(store, "signal-ingestion", dedupeTTL),
		bus:     b,
		log:     log,
	}
}

// RunCycle polls every registered source once and returns the aggregate
// Summary across all of them. A failure polling one source does not abort
// the others.
func (s *Service) RunCycle(ctx context.Context) Summary {
	var total Summary
	for _, src := range s.sources {
		total.merge(s.runSource(ctx, src))
	}
	return total
}

func (s *Service) runSource(ctx context.Context, src Source) Summary {
	var summary Summary

	raws, err := src.Poll(ctx)
	if err != nil {
		s.log.Warn("ingestion source poll failed", zap.String("source", src.Name()), zap.Error(err))
		return summary
	}
	summary.Polled = len(raws)

	for _, raw := range raws {
		signal, err := normalize.Signal(raw)
		if err != nil {
			s.log.Warn("ingestion normalisation failed", zap.String("source", src.Name()), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Normalized++

		firstSeen, err := s.checker.MarkIfFirstSeen(ctx, signal.EventID)
		if err != nil {
			s.log.Error("ingestion dedupe check failed", zap.String("source", src.Name()), zap.Error(err))
			summary.Failed++
			continue
		}
		if !firstSeen {
			summary.Deduplicated++
			continue
		}

		if _, err := bus.Publish(ctx, s.bus, schema.StreamExternalSignals, signal); err != nil {
			s.log.Error("ingestion publish failed", zap.String("source", src.Name()), zap.String("event_id", signal.EventID), zap.Error(err))
			if clearErr := s.checker.Clear(ctx, signal.EventID); clearErr != nil {
				s.log.Error("ingestion dedupe rollback failed", zap.String("event_id", signal.EventID), zap.Error(clearErr))
			}
			summary.Failed++
			continue
		}
		summary.Published++
	}
	return summary
}

// Run polls every registered source on interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("signal ingestion service started", zap.Duration("interval", interval), zap.Int("sources", len(s.sources)))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("signal ingestion service stopping")
			return
		case <-ticker.C:
			summary := s.RunCycle(ctx)
			s.log.Info("ingestion cycle complete",
				zap.Int("polled", summary.Polled),
				zap.Int("normalized", summary.Normalized),
				zap.Int("deduplicated", summary.Deduplicated),
				zap.Int("published", summary.Published),
				zap.Int("failed", summary.Failed),
			)
		}
	}
}

func (s *Summary) merge(o Summary) {
	s.Polled += o.Polled
	s.Normalized += o.Normalized
	s.Deduplicated += o.Deduplicated
	s.Published += o.Published
	s.Failed += o.Failed
}
