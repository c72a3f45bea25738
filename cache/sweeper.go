package cache

import (
	"context"
	"time"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/cron"
)

// DefaultSweepExpression runs a sweep every ten minutes.
const DefaultSweepExpression = "@every 10m"

// Sweeper drops expired entries of a store on a schedule.
type Sweeper struct {
	store      Sweepable
	scheduler  *cron.Scheduler
	expression string
	logger     formversion.Logger
	now        func() time.Time
	handle     cron.Handle
}

// NewSweeper builds a sweeper. The scheduler is not started.
func NewSweeper(store Sweepable, scheduler *cron.Scheduler, expression string, logger formversion.Logger) *Sweeper {
	if expression == "" {
		expression = DefaultSweepExpression
	}
	return &Sweeper{
		store:      store,
		scheduler:  scheduler,
		expression: expression,
		logger:     formversion.NormalizeLogger(logger),
		now:        time.Now,
	}
}

// Start registers the sweep job.
func (s *Sweeper) Start() error {
	handle, err := s.scheduler.Schedule(cron.JobConfig{
		Name:       "template-cache-sweep",
		Expression: s.expression,
		Timeout:    time.Minute,
	}, s.SweepOnce)
	if err != nil {
		return err
	}
	s.handle = handle
	return nil
}

// Stop cancels the sweep job.
func (s *Sweeper) Stop() {
	if s.handle != nil {
		s.handle.Cancel()
	}
}

// SweepOnce runs one sweep now.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	removed, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Debug("swept %d expired template cache entries", removed)
	}
	return nil
}
