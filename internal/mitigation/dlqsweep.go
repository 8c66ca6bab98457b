package mitigation

import (
	"context"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

// dlqSweepSampleSize bounds how many dead-lettered risk-evaluations are
// inspected per sweep; this is an operational visibility check, not a
// redrive, so it stays cheap regardless of how deep the DLQ has grown.
const dlqSweepSampleSize = 100

// NewDLQSweepHandler returns a worker.Handler driven by system-ticks: on
// every tick it samples the risk-evaluations dead-letter stream and logs
// how many entries are waiting there, so an operator notices a stuck
// planner without having to poll the stream by hand.
func NewDLQSweepHandler(b *bus.Bus, log *zap.Logger) worker.Handler[schema.SystemTick] {
	return func(ctx context.Context, tick schema.SystemTick) error {
		dlqStream := schema.DLQStream(schema.StreamRiskEvaluations)
		entries, err := bus.ReadRecent[schema.RiskEvaluation](ctx, b, dlqStream, dlqSweepSampleSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			log.Info("dlq sweep: no dead-lettered risk evaluations", zap.String("tick_event", tick.Event))
			return nil
		}
		log.Warn("dlq sweep: dead-lettered risk evaluations present",
			zap.String("tick_event", tick.Event),
			zap.Int("sampled_count", len(entries)),
		)
		return nil
	}
}
