package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"careline/internal/calls"
)

// Sweeper periodically fails call attempts stuck in_progress past the
// configured timeout. An attempt gets stuck when the dispatching process died
// mid-run or the provider's end-of-call report never arrived; without the
// sweep those rows wait forever for a webhook that is not coming.
type Sweeper struct {
	store   calls.Store
	timeout time.Duration
	logger  *slog.Logger

	cron *cron.Cron

	clock func() time.Time
}

func New(store calls.Store, timeout time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:   store,
		timeout: timeout,
		logger:  logger,
		clock:   time.Now,
	}
}

// Start schedules the sweep at the given interval and runs it until Stop.
func (s *Sweeper) Start(interval time.Duration) error {
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("stale-attempt sweep scheduled",
		slog.String("interval", interval.String()),
		slog.String("timeout", s.timeout.String()),
	)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce executes a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := s.clock().UTC().Add(-s.timeout)
	n, err := s.store.ExpireStaleAttempts(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale-attempt sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Warn("expired stale call attempts", slog.Int64("count", n))
	}
}
