// Package connector implements the universal polling connector: a
// per-instance state machine that fetches from an external provider on a
// schedule, detects change against a persisted per-item version, publishes
// new/changed items, and persists state once per tick.
// It runs a ticker-driven background loop, generalised from a single
// hard-coded provider to an arbitrary pluggable Fetcher.
package connector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/connstate"
	"github.com/arc-self/supplyrisk/internal/platform/errs"
	"github.com/arc-self/supplyrisk/internal/schema"
)

// Phase names the connector's current state. Backoff is entered only after a
// failed fetch attempt; the rest form the fixed Idle->...->Idle cycle.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFetching     Phase = "fetching"
	PhaseTransforming Phase = "transforming"
	PhasePublishing   Phase = "publishing"
	PhasePersisting   Phase = "persisting"
	PhaseBackoff      Phase = "backoff"
)

// Item is one record returned by a provider fetch. ID identifies it within
// the provider's namespace; Version is opaque and compared for equality
// only — a changed Version means the item has changed since last seen.
type Item struct {
	ID      string
	Version string
	Raw     interface{}
}

// Fetcher calls out to the external provider and returns the items
// currently available. It MUST respect ctx's deadline.
type Fetcher func(ctx context.Context) ([]Item, error)

// Transformer converts one changed Item into a RawExternalSignal ready for
// normalisation and publish. An error here counts the item as failed for
// this tick without aborting the rest of the poll.
type Transformer func(item Item) (schema.RawExternalSignal, error)

// Config configures one Connector instance.
type Config struct {
	Name             string
	PollInterval     time.Duration
	RequestTimeout   time.Duration
	MaxRetries       int
	TargetStream     string // usually schema.StreamRawInputSignals
	StreamMaxLen     int64
}

// Tick summarises the outcome of a single poll. The counters always
// satisfy Fetched == Published + SkippedUnchanged + Failed.
type Tick struct {
	Fetched          int
	Published        int
	SkippedUnchanged int
	Failed           int
}

// Connector is one running instance of the universal polling connector.
type Connector struct {
	cfg         Config
	fetch       Fetcher
	transform   Transformer
	state       *connstate.Store
	bus         *bus.Bus
	log         *zap.Logger
	phase       Phase
}

// New constructs a Connector. cfg.PollInterval, cfg.RequestTimeout must be
// positive; cfg.MaxRetries must be >= 0.
func New(cfg Config, fetch Fetcher, transform Transformer, state *connstate.Store, b *bus.Bus, log *zap.Logger) (*Connector, error) {
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: connector %q: pollIntervalMs must be > 0", errs.ErrConfig, cfg.Name)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("%w: connector %q: requestTimeoutMs must be > 0", errs.ErrConfig, cfg.Name)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: connector %q: maxRetries must be >= 0", errs.ErrConfig, cfg.Name)
	}
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = bus.DefaultMaxLen
	}
	return &Connector{cfg: cfg, fetch: fetch, transform: transform, state: state, bus: b, log: log, phase: PhaseIdle}, nil
}

// Phase returns the connector's current state, useful for tests and
// operational introspection.
func (c *Connector) Phase() Phase { return c.phase }

// Run drives the connector on its configured interval until ctx is
// cancelled, running one Tick at a time. Each fetch attempt is bounded by
// RequestTimeout, but a tick is not: it can take up to MaxRetries+1 fetch
// attempts plus the backoff delays between them.
func (c *Connector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.log.Info("connector started", zap.String("connector", c.cfg.Name), zap.Duration("interval", c.cfg.PollInterval))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("connector stopping", zap.String("connector", c.cfg.Name))
			return
		case <-ticker.C:
			tick, err := c.Tick(ctx)
			if err != nil {
				c.log.Error("connector tick failed", zap.String("connector", c.cfg.Name), zap.Error(err))
				continue
			}
			c.log.Info("connector tick complete",
				zap.String("connector", c.cfg.Name),
				zap.Int("fetched", tick.Fetched),
				zap.Int("published", tick.Published),
				zap.Int("skipped_unchanged", tick.SkippedUnchanged),
				zap.Int("failed", tick.Failed),
			)
		}
	}
}

// Tick runs exactly one Idle->Fetching->Transforming->Publishing->
// Persisting->Idle cycle (or Idle->Backoff on fetch failure exhaustion).
func (c *Connector) Tick(ctx context.Context) (Tick, error) {
	c.phase = PhaseFetching
	state, err := c.state.Load(ctx, c.cfg.Name)
	if err != nil {
		c.phase = PhaseIdle
		return Tick{}, fmt.Errorf("connector %q: load state: %w", c.cfg.Name, err)
	}

	items, err := c.fetchWithRetry(ctx)
	if err != nil {
		c.phase = PhaseIdle
		return Tick{}, fmt.Errorf("%w: connector %q: %v", errs.ErrProvider, c.cfg.Name, err)
	}

	tick := Tick{Fetched: len(items)}
	c.phase = PhaseTransforming

	for _, item := range items {
		if prevVersion, seen := state.Version(item.ID); seen && prevVersion == item.Version {
			tick.SkippedUnchanged++
			continue
		}

		raw, err := c.transform(item)
		if err != nil {
			c.log.Warn("connector item transform failed",
				zap.String("connector", c.cfg.Name), zap.String("item_id", item.ID), zap.Error(err))
			tick.Failed++
			continue
		}

		c.phase = PhasePublishing
		if _, err := bus.Publish(ctx, c.bus, c.cfg.TargetStream, raw); err != nil {
			c.log.Warn("connector item publish failed",
				zap.String("connector", c.cfg.Name), zap.String("item_id", item.ID), zap.Error(err))
			tick.Failed++
			continue
		}

		state.SetVersion(item.ID, item.Version)
		tick.Published++
	}

	c.phase = PhasePersisting
	state.Touch(time.Now())
	if err := c.state.Save(ctx, c.cfg.Name, state); err != nil {
		c.phase = PhaseIdle
		return tick, fmt.Errorf("connector %q: save state: %w", c.cfg.Name, err)
	}

	c.phase = PhaseIdle
	return tick, nil
}

// fetchWithRetry calls the fetcher with RequestTimeout, retrying up to
// MaxRetries times with exponential backoff bounded by PollInterval before
// surrendering the tick.
func (c *Connector) fetchWithRetry(ctx context.Context) ([]Item, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		items, err := c.fetch(fetchCtx)
		cancel()
		if err == nil {
			return items, nil
		}
		lastErr = err
		c.phase = PhaseBackoff
		if attempt == c.cfg.MaxRetries {
			break
		}
		delay := backoffDelay(attempt+1, c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// backoffDelay computes base-2 exponential backoff capped at ceiling:
// delay = base * 2^(attempt-1).
func backoffDelay(attempt int, ceiling time.Duration) time.Duration {
	base := 100 * time.Millisecond
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d > ceiling {
		return ceiling
	}
	return d
}
