package mitigation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func TestDLQSweepHandler_LogsWhenEntriesPresent(t *testing.T) {
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	_, err := bus.Publish(context.Background(), b, schema.DLQStream(schema.StreamRiskEvaluations), schema.RiskEvaluation{RiskID: "r-1"})
	require.NoError(t, err)

	handler := NewDLQSweepHandler(b, zaptest.NewLogger(t))
	require.NoError(t, handler(context.Background(), schema.SystemTick{Event: "cron.hourly"}))
}

func TestDLQSweepHandler_NoErrorWhenDLQEmpty(t *testing.T) {
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	handler := NewDLQSweepHandler(b, zaptest.NewLogger(t))
	require.NoError(t, handler(context.Background(), schema.SystemTick{Event: "cron.daily"}))
}
