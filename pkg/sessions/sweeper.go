package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ledgerline/ledgerline/pkg/observability"
)

// Sweeper periodically deletes expired session rows on a cron schedule
type Sweeper struct {
	store   *Store
	cron    *cron.Cron
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewSweeper creates a session sweeper. Call Start to begin sweeping.
func NewSweeper(store *Store, logger *observability.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		store:   store,
		cron:    cron.New(),
		logger:  logger,
		metrics: metrics,
	}
}

// Start schedules the sweep job. The schedule uses standard cron syntax,
// e.g. "*/10 * * * *" for every ten minutes.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs one sweep immediately, outside the schedule
func (s *Sweeper) Sweep(ctx context.Context) {
	s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.store.DeleteExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("session sweep failed")
		return
	}

	if s.metrics != nil {
		s.metrics.SessionsSweptTotal.Add(float64(deleted))
		if active, err := s.store.CountActive(ctx); err == nil {
			s.metrics.SessionsActive.Set(float64(active))
		}
	}

	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("swept expired sessions")
	}
}
