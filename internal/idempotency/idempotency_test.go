package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/idempotency"
)

func TestMarkIfFirstSeen_OnlyFirstCallersWin(t *testing.T) {
	ctx := context.Background()
	checker := idempotency.New(bus.NewMemStore(), "test", time.Minute)

	first, err := checker.MarkIfFirstSeen(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := checker.MarkIfFirstSeen(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, second)
}

func TestClear_AllowsReprocessing(t *testing.T) {
	ctx := context.Background()
	checker := idempotency.New(bus.NewMemStore(), "test", time.Minute)

	_, err := checker.MarkIfFirstSeen(ctx, "abc")
	require.NoError(t, err)

	require.NoError(t, checker.Clear(ctx, "abc"))

	again, err := checker.MarkIfFirstSeen(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestMarkIfFirstSeen_DistinctIDsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	checker := idempotency.New(bus.NewMemStore(), "test", time.Minute)

	a, err := checker.MarkIfFirstSeen(ctx, "a")
	require.NoError(t, err)
	b, err := checker.MarkIfFirstSeen(ctx, "b")
	require.NoError(t, err)
	assert.True(t, a)
	assert.True(t, b)
}
