// Package idempotency implements a first-seen-wins dedupe contract: a
// conditional insert with a TTL decides, atomically, whether this is the
// first time a given key has been observed.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/arc-self/supplyrisk/internal/bus"
)

// Checker guards against reprocessing the same logical item more than once
// within a retention window.
type Checker struct {
	store bus.Store
	// prefix namespaces keys so two checkers sharing a store never collide,
	// e.g. "signal-ingestion:" vs "connstate:".
	prefix string
	ttl    time.Duration
}

// New constructs a Checker whose keys live under prefix and expire after ttl.
func New(store bus.Store, prefix string, ttl time.Duration) *Checker {
	return &Checker{store: store, prefix: prefix, ttl: ttl}
}

func (c *Checker) key(id string) string {
	return fmt.Sprintf("idemp:%s:%s", c.prefix, id)
}

// MarkIfFirstSeen atomically records id as seen and reports whether this
// call is the one that first saw it. A caller that later fails to finish
// processing should call Clear so a future retry is not permanently
// suppressed.
func (c *Checker) MarkIfFirstSeen(ctx context.Context, id string) (firstSeen bool, err error) {
	ok, err := c.store.SetIfAbsentWithTTL(ctx, c.key(id), "1", c.ttl)
	if err != nil {
		return false, fmt.Errorf("idempotency: mark %q: %w", id, err)
	}
	return ok, nil
}

// Clear removes the first-seen marker for id, allowing it to be reprocessed.
// Used when a publish fails after MarkIfFirstSeen succeeded, so the failure
// does not permanently and silently drop the item.
func (c *Checker) Clear(ctx context.Context, id string) error {
	if err := c.store.Del(ctx, c.key(id)); err != nil {
		return fmt.Errorf("idempotency: clear %q: %w", id, err)
	}
	return nil
}
