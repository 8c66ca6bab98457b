// Package worker implements the generic stream-consumer loop: ensureGroup,
// blocking read, per-message handler, then ack-on-success or
// retry-increment-then-DLQ-on-exhaustion. Every
// business transformer (classification, risk, mitigation, impact) is built
// by plugging a Handler into a Worker.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/codec"
)

// Handler processes one decoded message. Returning an error marks the
// delivery a failure and drives the retry-counter path; it is never
// surfaced to the caller of Run.
type Handler[T any] func(ctx context.Context, msg T) error

// Config configures one Worker instance.
type Config struct {
	Stream           string
	Group            string
	Consumer         string
	BatchSize        int64
	BlockMs          int64
	MaxDeliveries    int64
	RetryKeyTTL      time.Duration
	RetryBackoff     time.Duration
}

// Worker drives Handler over one (stream, group, consumer) triple.
type Worker[T any] struct {
	cfg     Config
	bus     *bus.Bus
	store   bus.Store
	handler Handler[T]
	log     *zap.Logger
}

// New constructs a Worker. store is the same backing Store the bus was
// built on — the retry counter lives in the same keyspace, external to the
// log.
func New[T any](cfg Config, b *bus.Bus, store bus.Store, handler Handler[T], log *zap.Logger) *Worker[T] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	if cfg.RetryKeyTTL <= 0 {
		cfg.RetryKeyTTL = 24 * time.Hour
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &Worker[T]{cfg: cfg, bus: b, store: store, handler: handler, log: log}
}

func (w *Worker[T]) retryKey(msgID string) string {
	return fmt.Sprintf("retry:%s:%s:%s", w.cfg.Stream, w.cfg.Group, msgID)
}

// Run ensures the consumer group exists, then loops reading and handling
// batches until ctx is cancelled. It polls ctx between batches so shutdown
// is cooperative: mid-batch cancellation waits for the current handler to
// finish, bounded by the handler's own timeouts.
func (w *Worker[T]) Run(ctx context.Context) error {
	if err := w.bus.EnsureGroup(ctx, w.cfg.Stream, w.cfg.Group); err != nil {
		return fmt.Errorf("worker %s/%s: ensure group: %w", w.cfg.Stream, w.cfg.Group, err)
	}
	w.log.Info("worker started", zap.String("stream", w.cfg.Stream), zap.String("group", w.cfg.Group))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping", zap.String("stream", w.cfg.Stream), zap.String("group", w.cfg.Group))
			return nil
		default:
		}

		if err := w.runBatch(ctx); err != nil {
			w.log.Error("worker batch failed", zap.String("stream", w.cfg.Stream), zap.Error(err))
		}
	}
}

func (w *Worker[T]) runBatch(ctx context.Context) error {
	msgs, err := bus.ConsumeGroup[T](ctx, w.bus, w.cfg.Stream, w.cfg.Group, w.cfg.Consumer, w.cfg.BatchSize, w.cfg.BlockMs)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		w.handleOne(ctx, msg)
	}
	return nil
}

func (w *Worker[T]) handleOne(ctx context.Context, msg bus.Decoded[T]) {
	if err := w.handler(ctx, msg.Message); err != nil {
		w.onFailure(ctx, msg, err)
		return
	}
	if err := w.bus.Ack(ctx, w.cfg.Stream, w.cfg.Group, msg.ID); err != nil {
		w.log.Error("ack failed", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	if err := w.store.Del(ctx, w.retryKey(msg.ID)); err != nil {
		w.log.Warn("retry counter cleanup failed", zap.String("id", msg.ID), zap.Error(err))
	}
}

func (w *Worker[T]) onFailure(ctx context.Context, msg bus.Decoded[T], handlerErr error) {
	key := w.retryKey(msg.ID)
	retries, err := w.store.Incr(ctx, key)
	if err != nil {
		w.log.Error("retry counter incr failed", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	if retries == 1 {
		if err := w.store.Expire(ctx, key, w.cfg.RetryKeyTTL); err != nil {
			w.log.Warn("retry counter expire failed", zap.String("id", msg.ID), zap.Error(err))
		}
	}

	w.log.Warn("handler failed",
		zap.String("stream", w.cfg.Stream), zap.String("id", msg.ID),
		zap.Int64("retries", retries), zap.Error(handlerErr))

	if retries >= w.cfg.MaxDeliveries {
		if err := w.deadLetter(ctx, msg, key); err != nil {
			w.log.Error("dead-letter failed", zap.String("id", msg.ID), zap.Error(err))
		}
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.RetryBackoff):
	}
}

func (w *Worker[T]) deadLetter(ctx context.Context, msg bus.Decoded[T], retryKey string) error {
	fields, err := codec.Encode(msg.Message)
	if err != nil {
		return err
	}
	if err := w.bus.MoveToDlq(ctx, w.cfg.Stream, w.cfg.Group, msg.ID, fields, "MAX_DELIVERIES_EXCEEDED"); err != nil {
		return err
	}
	return w.store.Del(ctx, retryKey)
}
