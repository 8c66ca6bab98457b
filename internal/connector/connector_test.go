package connector_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/connector"
	"github.com/arc-self/supplyrisk/internal/connstate"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func strPtr(s string) *string { return &s }

func newTestConnector(t *testing.T, fetch connector.Fetcher) (*connector.Connector, *bus.Bus) {
	t.Helper()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))
	cs := connstate.New(store)

	transform := func(item connector.Item) (schema.RawExternalSignal, error) {
		return schema.RawExternalSignal{
			EventID:    strPtr(item.ID),
			SourceType: strPtr("WEATHER"),
			RawContent: strPtr("content-" + item.Version),
		}, nil
	}

	c, err := connector.New(connector.Config{
		Name:           "test-connector",
		PollInterval:   time.Minute,
		RequestTimeout: time.Second,
		MaxRetries:     0,
		TargetStream:   schema.StreamRawInputSignals,
	}, fetch, transform, cs, b, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c, b
}

func TestTick_PublishesNewItems(t *testing.T) {
	fetch := func(ctx context.Context) ([]connector.Item, error) {
		return []connector.Item{{ID: "7", Version: "v1"}}, nil
	}
	c, b := newTestConnector(t, fetch)

	tick, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.Tick{Fetched: 1, Published: 1}, tick)

	out, err := bus.ReadRecent[schema.RawExternalSignal](context.Background(), b, schema.StreamRawInputSignals, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestTick_UnchangedItemIsSkipped(t *testing.T) {
	fetch := func(ctx context.Context) ([]connector.Item, error) {
		return []connector.Item{{ID: "7", Version: "v1"}}, nil
	}
	c, _ := newTestConnector(t, fetch)

	first, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Published)

	second, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.Tick{Fetched: 1, Published: 0, SkippedUnchanged: 1}, second)
}

func TestTick_ChangedVersionRepublishes(t *testing.T) {
	version := "v1"
	fetch := func(ctx context.Context) ([]connector.Item, error) {
		return []connector.Item{{ID: "7", Version: version}}, nil
	}
	c, _ := newTestConnector(t, fetch)

	_, err := c.Tick(context.Background())
	require.NoError(t, err)

	version = "v2"
	second, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Published)
	assert.Equal(t, 0, second.SkippedUnchanged)
}

func TestTick_FetchedEqualsPublishedPlusSkippedPlusFailed(t *testing.T) {
	fetch := func(ctx context.Context) ([]connector.Item, error) {
		return []connector.Item{{ID: "1", Version: "v1"}, {ID: "2", Version: "v1"}, {ID: "3", Version: "v1"}}, nil
	}
	c, _ := newTestConnector(t, fetch)

	tick, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tick.Fetched, tick.Published+tick.SkippedUnchanged+tick.Failed)
}

func TestTick_FetchErrorSurfacesProviderError(t *testing.T) {
	fetch := func(ctx context.Context) ([]connector.Item, error) {
		return nil, assert.AnError
	}
	c, _ := newTestConnector(t, fetch)

	_, err := c.Tick(context.Background())
	require.Error(t, err)
}
