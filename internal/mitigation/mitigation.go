// Package mitigation implements the mitigation-planning stage: invokes a
// pluggable Planner to produce one MitigationPlan per RiskEvaluation,
// publishing with bounded retry on publish failure.
package mitigation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/platform/errs"
	"github.com/arc-self/supplyrisk/internal/schema"
	"github.com/arc-self/supplyrisk/internal/worker"
)

// Planner produces a MitigationPlan from a RiskEvaluation. It MUST return
// at least one action.
type Planner interface {
	CreatePlan(ctx context.Context, evaluation schema.RiskEvaluation) (schema.MitigationPlan, error)
}

// Config configures retry behaviour for the publish step.
type Config struct {
	MaxPublishAttempts int
	BaseDelay          time.Duration
}

// Service drives a Planner behind a stream-consumer handler.
type Service struct {
	planner Planner
	cfg     Config
	log     *zap.Logger
}

// New constructs a Service.
func New(planner Planner, cfg Config, log *zap.Logger) *Service {
	if cfg.MaxPublishAttempts <= 0 {
		cfg.MaxPublishAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	return &Service{planner: planner, cfg: cfg, log: log}
}

// Handler returns the worker.Handler driving this Service.
func (s *Service) Handler(b *bus.Bus) worker.Handler[schema.RiskEvaluation] {
	return func(ctx context.Context, evaluation schema.RiskEvaluation) error {
		plan, err := s.planner.CreatePlan(ctx, evaluation)
		if err != nil {
			return fmt.Errorf("%w: mitigation planner: %v", errs.ErrHandler, err)
		}
		if len(plan.Actions) == 0 {
			return fmt.Errorf("%w: mitigation plan for risk %s has zero actions", errs.ErrHandler, evaluation.RiskID)
		}

		plan.PlanID = uuid.NewString()
		plan.RiskID = evaluation.RiskID
		plan.EventID = evaluation.EventID
		plan.Lane = evaluation.Lane
		plan.CreatedAtUTC = time.Now().UTC().Format(time.RFC3339Nano)

		return s.publishWithRetry(ctx, b, plan)
	}
}

// publishWithRetry applies exponential backoff (delay = base * 2^(attempt-1))
// around the publish call specifically, not
// the whole handler — the stream-consumer worker already retries the
// handler as a whole, and double-retrying here would only amplify DLQ
// latency for failures that are not transport-related.
func (s *Service) publishWithRetry(ctx context.Context, b *bus.Bus, plan schema.MitigationPlan) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxPublishAttempts; attempt++ {
		_, err := bus.Publish(ctx, b, schema.StreamMitigationPlans, plan)
		if err == nil {
			return nil
		}
		lastErr = err
		s.log.Warn("mitigation plan publish attempt failed",
			zap.String("plan_id", plan.PlanID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == s.cfg.MaxPublishAttempts {
			break
		}
		delay := s.cfg.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%w: publish mitigation plan after %d attempts: %v", errs.ErrTransport, s.cfg.MaxPublishAttempts, lastErr)
}
