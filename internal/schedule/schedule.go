// Package schedule provides a cron-based tick publisher. Other services
// subscribe to system-ticks instead of running their own timers, so
// periodic background work (the mitigation service's dead-letter sampling
// sweep) stays driven by one shared schedule.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
)

// TickScheduler wraps robfig/cron and publishes SystemTick messages onto
// system-ticks on each scheduled firing.
type TickScheduler struct {
	cron   *cron.Cron
	bus    *bus.Bus
	logger *zap.Logger
}

// New constructs a TickScheduler. Call Start to register jobs and begin
// firing; call Stop to drain in-flight jobs before shutdown.
func New(b *bus.Bus, logger *zap.Logger) *TickScheduler {
	return &TickScheduler{
		cron:   cron.New(cron.WithSeconds()),
		bus:    b,
		logger: logger,
	}
}

// Start registers the hourly and daily ticks and starts firing them.
func (s *TickScheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", func() { s.publish("cron.hourly") }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", func() { s.publish("cron.daily") }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("tick scheduler started")
	return nil
}

// Stop stops the scheduler and waits for any in-flight job to finish.
func (s *TickScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("tick scheduler stopped")
}

func (s *TickScheduler) publish(event string) {
	tick := schema.SystemTick{
		Event:        event,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := bus.Publish(ctx, s.bus, schema.StreamSystemTicks, tick); err != nil {
		s.logger.Error("failed to publish system tick", zap.String("event", event), zap.Error(err))
		return
	}
	s.logger.Info("system tick published", zap.String("event", event))
}
