package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper evicts idle sessions on a cron schedule.
type Sweeper struct {
	store    Store
	ttl      time.Duration
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
	now      func() time.Time
}

func NewSweeper(log *slog.Logger, store Store, ttl time.Duration, schedule string) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		logger:   log.With(slog.String("service", "session_sweeper")),
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler goroutine.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("session sweeper started", slog.String("schedule", s.schedule), slog.Duration("ttl", s.ttl))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Sweep evicts sessions idle for longer than the TTL and returns the count.
func (s *Sweeper) Sweep(ctx context.Context) int {
	removed, err := s.store.Evict(ctx, s.now().Add(-s.ttl))
	if err != nil {
		s.logger.Error("session sweep failed", slog.Any("error", err))
		return 0
	}
	if removed > 0 {
		s.logger.Info("expired sessions evicted", slog.Int("count", removed))
	}
	return removed
}
