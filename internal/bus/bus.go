package bus

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/codec"
	"github.com/arc-self/supplyrisk/internal/schema"
)

// Bus is the typed façade over a Store. Every producer and consumer in the
// pipeline talks to a Bus, never to a Store directly, so the wire format
// (codec) and dead-letter routing stay in one place.
type Bus struct {
	store Store
	log   *zap.Logger
}

// New wraps store in a Bus.
func New(store Store, logger *zap.Logger) *Bus {
	return &Bus{store: store, log: logger}
}

// DefaultMaxLen is the approximate cap Publish applies to every stream it
// appends to. Chosen generously so normal operation never
// approaches it; streams are not meant to grow unbounded.
const DefaultMaxLen = 1_000_000

// Publish encodes message and appends it to stream, returning the assigned
// entry id.
func Publish(ctx context.Context, b *Bus, stream string, message interface{}) (string, error) {
	fields, err := codec.Encode(message)
	if err != nil {
		return "", err
	}
	return b.store.Append(ctx, stream, fields, DefaultMaxLen)
}

// Decoded pairs a decoded message with the entry id it was read from, so a
// consumer can Ack or route-to-DLQ by id after handling it.
type Decoded[T any] struct {
	ID      string
	Message T
}

// ReadRecent reads up to count of the most recent entries off stream and
// decodes each into T. An entry that fails to decode is skipped rather than
// failing the whole read, since ReadRecent backs read-only inspection
// endpoints (e.g. a DLQ viewer) where one bad entry must not hide the rest.
func ReadRecent[T any](ctx context.Context, b *Bus, stream string, count int64) ([]Decoded[T], error) {
	entries, err := b.store.ReadRecent(ctx, stream, count)
	if err != nil {
		return nil, err
	}
	out := make([]Decoded[T], 0, len(entries))
	for _, e := range entries {
		var msg T
		if _, err := codec.Decode(e.Fields, &msg); err != nil {
			b.log.Warn("skipping undecodable entry", zap.String("stream", stream), zap.String("id", e.ID), zap.Error(err))
			continue
		}
		out = append(out, Decoded[T]{ID: e.ID, Message: msg})
	}
	return out, nil
}

// EnsureGroup idempotently creates group on stream, starting at the tail so
// only entries published after the group exists are delivered to it.
func (b *Bus) EnsureGroup(ctx context.Context, stream, group string) error {
	return b.store.CreateGroup(ctx, stream, group, true)
}

// ConsumeGroup performs one blocking read for consumer within group on
// stream, decoding each entry into T. Entries that fail to decode are
// dead-lettered immediately and acked on the source stream — a poison
// payload should never be redelivered, since redelivery cannot change the
// outcome.
func ConsumeGroup[T any](ctx context.Context, b *Bus, stream, group, consumer string, count int64, blockMs int64) ([]Decoded[T], error) {
	entries, err := b.store.ReadGroup(ctx, stream, group, consumer, count, blockMs)
	if err != nil {
		return nil, err
	}
	out := make([]Decoded[T], 0, len(entries))
	for _, e := range entries {
		var msg T
		if _, decErr := codec.Decode(e.Fields, &msg); decErr != nil {
			b.log.Warn("dead-lettering undecodable entry",
				zap.String("stream", stream), zap.String("group", group), zap.String("id", e.ID), zap.Error(decErr))
			if _, pubErr := b.store.Append(ctx, schema.DLQStream(stream), e.Fields, DefaultMaxLen); pubErr != nil {
				b.log.Error("failed to dead-letter undecodable entry", zap.Error(pubErr))
			}
			if ackErr := b.store.Ack(ctx, stream, group, []string{e.ID}); ackErr != nil {
				b.log.Error("failed to ack dead-lettered entry", zap.Error(ackErr))
			}
			continue
		}
		out = append(out, Decoded[T]{ID: e.ID, Message: msg})
	}
	return out, nil
}

// Ack acknowledges id within group on stream.
func (b *Bus) Ack(ctx context.Context, stream, group, id string) error {
	return b.store.Ack(ctx, stream, group, []string{id})
}

// MoveToDlq republishes the original fields for entryID onto the stream's
// dead-letter stream, tagging the reason, then acks the original so it is
// not redelivered.
func (b *Bus) MoveToDlq(ctx context.Context, stream, group, entryID string, fields map[string]string, reason string) error {
	dlqFields := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		dlqFields[k] = v
	}
	dlqFields["dlq_reason"] = reason
	dlqFields["dlq_at_utc"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := b.store.Append(ctx, schema.DLQStream(stream), dlqFields, DefaultMaxLen); err != nil {
		return err
	}
	return b.store.Ack(ctx, stream, group, []string{entryID})
}
