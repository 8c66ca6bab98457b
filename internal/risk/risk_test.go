package risk_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/risk"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func testConfig() risk.Config {
	return risk.Config{
		Lanes: []risk.Lane{
			{Name: "US-FL-Miami", Triggers: []string{"us-fl", "florida"}},
			{Name: "IN-MH-Mumbai", Triggers: []string{"in-mh", "mumbai"}},
		},
		Thresholds:     risk.Thresholds{Medium: 0.3, High: 0.6, Critical: 0.8},
		RelevanceFloor: 0.05,
	}
}

func TestHandler_PublishesEvaluationForMatchedLane(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	svc := risk.New(testConfig(), zaptest.NewLogger(t))
	structured := schema.StructuredRisk{ClassificationID: "c1", EventID: "e1", ImpactRegion: "US-FL", Severity: 0.9}

	require.NoError(t, svc.Handler(b)(ctx, structured))

	out, err := bus.ReadRecent[schema.RiskEvaluation](ctx, b, schema.StreamRiskEvaluations, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "US-FL-Miami", out[0].Message.Lane)
}

func TestHandler_DropsUnmatchedRegion(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	svc := risk.New(testConfig(), zaptest.NewLogger(t))
	structured := schema.StructuredRisk{ClassificationID: "c1", EventID: "e1", ImpactRegion: "Unknown-Region", Severity: 0.9}

	require.NoError(t, svc.Handler(b)(ctx, structured))

	out, err := bus.ReadRecent[schema.RiskEvaluation](ctx, b, schema.StreamRiskEvaluations, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHandler_BucketsRiskLevelByCompositeScore(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	svc := risk.New(testConfig(), zaptest.NewLogger(t))
	structured := schema.StructuredRisk{ClassificationID: "c1", EventID: "e1", ImpactRegion: "US-FL", Severity: 1.0}

	require.NoError(t, svc.Handler(b)(ctx, structured))
	out, err := bus.ReadRecent[schema.RiskEvaluation](ctx, b, schema.StreamRiskEvaluations, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, []schema.RiskLevel{schema.RiskHigh, schema.RiskCritical}, out[0].Message.RiskLevel)
}
