package ingestion_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/ingestion"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func strPtr(s string) *string { return &s }

type fakeSource struct {
	name    string
	signals []schema.RawExternalSignal
	err     error
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Poll(ctx context.Context) ([]schema.RawExternalSignal, error) {
	return f.signals, f.err
}

func TestRunCycle_DedupesRepeatedEventID(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	signal := schema.RawExternalSignal{
		EventID: strPtr("e1"), SourceType: strPtr("NEWS"), RawContent: strPtr("x"),
		SourceReference: strPtr("r"), GeographicScope: strPtr("IN"),
	}
	src := &fakeSource{name: "s1", signals: []schema.RawExternalSignal{signal, signal}}

	svc := ingestion.New([]ingestion.Source{src}, store, time.Minute, b, zaptest.NewLogger(t))
	summary := svc.RunCycle(ctx)

	assert.Equal(t, 2, summary.Polled)
	assert.Equal(t, 2, summary.Normalized)
	assert.Equal(t, 1, summary.Published)
	assert.Equal(t, 1, summary.Deduplicated)

	out, err := bus.ReadRecent[schema.ExternalSignal](ctx, b, schema.StreamExternalSignals, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].Message.EventID)
}

func TestRunCycle_SchemaFailureCountsAsFailedNotPublished(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	bad := schema.RawExternalSignal{EventID: strPtr("e1")} // missing required fields
	src := &fakeSource{name: "s1", signals: []schema.RawExternalSignal{bad}}

	svc := ingestion.New([]ingestion.Source{src}, store, time.Minute, b, zaptest.NewLogger(t))
	summary := svc.RunCycle(ctx)

	assert.Equal(t, 1, summary.Polled)
	assert.Equal(t, 0, summary.Normalized)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Published)
}

func TestRunCycle_SourcePollFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))

	failing := &fakeSource{name: "bad", err: assert.AnError}
	good := &fakeSource{name: "good", signals: []schema.RawExternalSignal{{
		EventID: strPtr("e2"), SourceType: strPtr("NEWS"), RawContent: strPtr("x"),
		SourceReference: strPtr("r"), GeographicScope: strPtr("IN"),
	}}}

	svc := ingestion.New([]ingestion.Source{failing, good}, store, time.Minute, b, zaptest.NewLogger(t))
	summary := svc.RunCycle(ctx)

	assert.Equal(t, 1, summary.Polled)
	assert.Equal(t, 1, summary.Published)
}
