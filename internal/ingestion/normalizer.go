package ingestion

import (
	"context"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/idempotency"
	"github.com/arc-self/supplyrisk/internal/normalize"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

// NewNormalizerHandler builds the stream-consumer handler that bridges
// raw-input-signals to external-signals: it is the consumer
// side of whatever publishes raw, unauthenticated records onto
// raw-input-signals (connectors, the signal gateway), applying the same
// normalise-then-dedupe-then-publish pipeline RunCycle applies to directly
// polled Sources. A SchemaError here is a handler failure like any other —
// it drives the retry-counter path rather than silently dropping the
// message, since a transient normalisation bug should not permanently lose
// data before an operator can fix it.
func NewNormalizerHandler(checker *idempotency.Checker, b *bus.Bus, log *zap.Logger) worker.Handler[schema.RawExternalSignal] {
	return func(ctx context.Context, raw schema.RawExternalSignal) error {
		signal, err := normalize.Signal(raw)
		if err != nil {
			return err
		}

		firstSeen, err := checker.MarkIfFirstSeen(ctx, signal.EventID)
		if err != nil {
			return err
		}
		if !firstSeen {
			log.Debug("raw signal deduplicated", zap.String("event_id", signal.EventID))
			return nil
		}

		if _, err := bus.Publish(ctx, b, schema.StreamExternalSignals, signal); err != nil {
			if clearErr := checker.Clear(ctx, signal.EventID); clearErr != nil {
				log.Error("dedupe rollback failed", zap.String("event_id", signal.EventID), zap.Error(clearErr))
			}
			return err
		}
		return nil
	}
}
