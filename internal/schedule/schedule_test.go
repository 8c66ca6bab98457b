package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func TestTickScheduler_PublishWritesSystemTick(t *testing.T) {
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))
	s := New(b, zaptest.NewLogger(t))

	s.publish("cron.hourly")

	decoded, err := bus.ReadRecent[schema.SystemTick](context.Background(), b, schema.StreamSystemTicks, 10)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, "cron.hourly", decoded[0].Message.Event)
	require.NotEmpty(t, decoded[0].Message.TimestampUTC)
}

func TestTickScheduler_StartRegistersJobsWithoutError(t *testing.T) {
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))
	s := New(b, zaptest.NewLogger(t))

	require.NoError(t, s.Start())
	s.Stop()
}
