package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/worker"
)

type item struct {
	Value string `json:"value"`
}

func TestWorker_SucceedsAfterKRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))
	require.NoError(t, b.EnsureGroup(ctx, "s", "g"))
	_, err := bus.Publish(ctx, b, "s", item{Value: "x"})
	require.NoError(t, err)

	var attempts int32
	acked := make(chan struct{}, 1)

	handler := func(ctx context.Context, msg item) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return errors.New("transient failure")
		}
		acked <- struct{}{}
		return nil
	}

	w := worker.New(worker.Config{
		Stream: "s", Group: "g", Consumer: "c1",
		BatchSize: 10, MaxDeliveries: 5, RetryBackoff: time.Millisecond,
	}, b, store, handler, zaptest.NewLogger(t))

	go w.Run(ctx)

	select {
	case <-acked:
	case <-ctx.Done():
		t.Fatal("handler never succeeded")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(3))
}

func TestWorker_ExhaustsToDeadLetter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))
	require.NoError(t, b.EnsureGroup(ctx, "s", "g"))
	_, err := bus.Publish(ctx, b, "s", item{Value: "x"})
	require.NoError(t, err)

	handler := func(ctx context.Context, msg item) error {
		return errors.New("always fails")
	}

	w := worker.New(worker.Config{
		Stream: "s", Group: "g", Consumer: "c1",
		BatchSize: 10, MaxDeliveries: 3, RetryBackoff: time.Millisecond, RetryKeyTTL: time.Minute,
	}, b, store, handler, zaptest.NewLogger(t))

	runCtx, runCancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.Run(runCtx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		dlq, err := store.ReadRecent(ctx, "s.dlq", 10)
		return err == nil && len(dlq) == 1
	}, time.Second, 10*time.Millisecond)

	runCancel()
	<-done
}
