// Package jobs runs the background maintenance tasks of the service on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ifcoins/internal/pkg/logger"
)

// KeyPurger deletes idempotency keys recorded before a cutoff.
type KeyPurger interface {
	PurgeIdempotencyKeys(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler manages the background jobs.
type Scheduler struct {
	cron   *cron.Cron
	purger KeyPurger
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time
}

// NewScheduler registers the idempotency key purge at schedule, in UTC.
// Keys older than ttl are removed on every run.
func NewScheduler(purger KeyPurger, schedule string, ttl time.Duration, l *logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		purger: purger,
		ttl:    ttl,
		log:    l.Named("jobs"),
		now:    time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.runPurge); err != nil {
		return nil, fmt.Errorf("jobs: schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.PurgeIdempotencyKeys(ctx); err != nil {
		s.log.Error("idempotency key purge failed", zap.Error(err))
	}
}

// PurgeIdempotencyKeys removes keys older than the configured TTL.
func (s *Scheduler) PurgeIdempotencyKeys(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl)
	n, err := s.purger.PurgeIdempotencyKeys(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Debug("idempotency keys purged", zap.Int64("count", n), zap.Time("before", cutoff))
	return n, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
