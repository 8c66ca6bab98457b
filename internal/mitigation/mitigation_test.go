package mitigation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/mitigation"
	"github.com/arc-self/supplyrisk/internal/schema"
)

type stubPlanner struct {
	plan schema.MitigationPlan
	err  error
}

func (s stubPlanner) CreatePlan(ctx context.Context, evaluation schema.RiskEvaluation) (schema.MitigationPlan, error) {
	return s.plan, s.err
}

func TestHandler_PublishesPlanWithStampedFields(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	planner := stubPlanner{plan: schema.MitigationPlan{
		Actions: []schema.MitigationAction{{Description: "reroute via alternate port"}},
	}}
	svc := mitigation.New(planner, mitigation.Config{}, zaptest.NewLogger(t))

	evaluation := schema.RiskEvaluation{RiskID: "r1", EventID: "e1", Lane: "US-FL-Miami"}
	require.NoError(t, svc.Handler(b)(ctx, evaluation))

	out, err := bus.ReadRecent[schema.MitigationPlan](ctx, b, schema.StreamMitigationPlans, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].Message.RiskID)
	assert.NotEmpty(t, out[0].Message.PlanID)
}

func TestHandler_ZeroActionsIsHandlerError(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	planner := stubPlanner{plan: schema.MitigationPlan{}}
	svc := mitigation.New(planner, mitigation.Config{}, zaptest.NewLogger(t))

	err := svc.Handler(b)(ctx, schema.RiskEvaluation{RiskID: "r1"})
	require.Error(t, err)
}

func TestHandler_PlannerErrorPropagates(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	planner := stubPlanner{err: errors.New("planner exploded")}
	svc := mitigation.New(planner, mitigation.Config{MaxPublishAttempts: 1, BaseDelay: time.Millisecond}, zaptest.NewLogger(t))

	err := svc.Handler(b)(ctx, schema.RiskEvaluation{RiskID: "r1"})
	require.Error(t, err)
}
