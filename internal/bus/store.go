// Package bus implements the event bus: append, approximate trim,
// tail-read, consumer groups with at-least-once delivery, and dead-letter
// routing, all expressed over a minimal log-store contract so the bus
// itself never depends on a concrete backend.
package bus

import (
	"context"
	"time"
)

// Entry is one raw record read back off a stream: the log-assigned id and
// its field map (always {"payload", "published_at_utc"} once codec has
// written it, but the store itself is agnostic to field shape).
type Entry struct {
	ID     string
	Fields map[string]string
}

// Store is the log-store contract consumed by the bus. A Redis
// implementation (RedisStore) and an in-memory one (MemStore, for
// single-process tests) both satisfy it.
type Store interface {
	// Append writes fields as a new entry on stream and returns its assigned
	// id. approxMaxLen, if > 0, caps the stream at approximately that many
	// entries (approximate semantics only — exact trimming is not supported).
	Append(ctx context.Context, stream string, fields map[string]string, approxMaxLen int64) (id string, err error)

	// ReadRange returns up to count entries between start and end (log-native
	// range syntax; "-"/"+" for full range), in ascending id order.
	ReadRange(ctx context.Context, stream, start, end string, count int64) ([]Entry, error)

	// ReadRecent returns the most recent count entries, newest first.
	ReadRecent(ctx context.Context, stream string, count int64) ([]Entry, error)

	// CreateGroup idempotently creates a consumer group on stream. When
	// startAtTail is true the group's cursor starts at the stream's current
	// tail (only entries appended after group creation are delivered);
	// otherwise it starts at the beginning. "already exists" is swallowed.
	CreateGroup(ctx context.Context, stream, group string, startAtTail bool) error

	// ReadGroup performs a blocking read of up to count new entries for
	// consumer within group, waiting up to blockMs milliseconds (0 = return
	// immediately, no entries means nothing was pending).
	ReadGroup(ctx context.Context, stream, group, consumer string, count int64, blockMs int64) ([]Entry, error)

	// Ack acknowledges ids within group on stream.
	Ack(ctx context.Context, stream, group string, ids []string) error

	// SetIfAbsentWithTTL atomically inserts key=value with the given TTL iff
	// key does not already exist. Returns true iff this call performed the
	// insert (i.e. the caller is first-seen).
	SetIfAbsentWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments key (creating it at 1 if absent) and
	// returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets (or refreshes) a TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Del removes key. Deleting an absent key is a no-op, not an error.
	Del(ctx context.Context, key string) error

	// Get returns the current value of a plain string key, and whether it existed.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set unconditionally writes a plain string key, optionally with a TTL
	// (ttl == 0 means no expiry). Used by connstate for per-connector state.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
