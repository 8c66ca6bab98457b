package connstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/connstate"
)

func TestLoad_NoPriorState_ReturnsEmpty(t *testing.T) {
	store := connstate.New(bus.NewMemStore())
	state, err := store.Load(context.Background(), "noaa-weather")
	require.NoError(t, err)
	assert.Empty(t, state.LastPollUTC)
	_, found := state.Version("item-1")
	assert.False(t, found)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	ctx := context.Background()
	store := connstate.New(bus.NewMemStore())

	state, err := store.Load(ctx, "noaa-weather")
	require.NoError(t, err)
	state.Touch(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	state.SetVersion("item-1", "v1")
	require.NoError(t, store.Save(ctx, "noaa-weather", state))

	reloaded, err := store.Load(ctx, "noaa-weather")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", reloaded.LastPollUTC)
	v, found := reloaded.Version("item-1")
	require.True(t, found)
	assert.Equal(t, "v1", v)
}

func TestSave_CapsVersionMapAtMaxEntries(t *testing.T) {
	state := &connstate.State{Versions: make(map[string]string)}
	for i := 0; i < connstate.MaxVersionMapEntries+10; i++ {
		state.SetVersion(string(rune(i)), "v")
	}
	// Saving applies the cap; simulate directly by round-tripping through a store.
	store := connstate.New(bus.NewMemStore())
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "c", state))
	reloaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(reloaded.Versions), connstate.MaxVersionMapEntries)
}
