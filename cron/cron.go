// Package cron runs recurring maintenance jobs, such as sweeping expired
// template cache entries, on cron expressions.
package cron

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	formversion "github.com/goliatone/go-formversion"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// JobConfig describes when and how a job runs.
type JobConfig struct {
	Name       string
	Expression string
	Timeout    time.Duration
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	location     *time.Location
	errorHandler func(error)
	logger       formversion.Logger
	parser       Parser
	logLevel     LogLevel

	nextHandleID int64
	handles      map[int64]*subscription
}

// NewScheduler creates a scheduler. Jobs only run after Start.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		parser:   DefaultParser,
		logLevel: LogLevelError,
		logger:   formversion.NewFmtLogger(nil),
		handles:  make(map[int64]*subscription),
	}
	s.errorHandler = func(err error) {
		s.logger.Error("scheduled job failed: %v", err)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.cron = rcron.New(s.build()...)
	return s
}

// Schedule registers job to run on cfg.Expression.
func (s *Scheduler) Schedule(cfg JobConfig, job Job) (Handle, error) {
	if strings.TrimSpace(cfg.Expression) == "" {
		return nil, fmt.Errorf("cron expression cannot be empty")
	}
	if job == nil {
		return nil, fmt.Errorf("job %q cannot be nil", cfg.Name)
	}

	sub := s.newHandle()
	entryID, err := s.cron.AddFunc(cfg.Expression, func() {
		if !sub.begin() {
			return
		}
		err := s.run(cfg, job)
		sub.finish(err)
		if err != nil {
			s.errorHandler(fmt.Errorf("job %s: %w", cfg.Name, err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add job %s: %w", cfg.Name, err)
	}
	sub.entryID = int(entryID)
	s.store(sub)
	return sub, nil
}

func (s *Scheduler) run(cfg JobConfig, job Job) error {
	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return job(ctx)
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waits for running jobs or ctx, and marks every
// handle as stopped.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	s.mu.Lock()
	handles := make([]*subscription, 0, len(s.handles))
	for _, handle := range s.handles {
		handles = append(handles, handle)
	}
	s.handles = make(map[int64]*subscription)
	s.mu.Unlock()

	for _, handle := range handles {
		s.cron.Remove(rcron.EntryID(handle.entryID))
		if !isTerminalStatus(handle.Status()) {
			handle.setTerminal(ScheduleStatusStopped, nil)
		}
	}

	if ctx == nil {
		return nil
	}
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) remove(id int64) {
	s.mu.Lock()
	handle := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()
	if handle != nil && handle.entryID > 0 {
		s.cron.Remove(rcron.EntryID(handle.entryID))
	}
}

func (s *Scheduler) store(handle *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[handle.id] = handle
}

func (s *Scheduler) newHandle() *subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	return &subscription{
		scheduler: s,
		id:        s.nextHandleID,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
	}
}

// build converts options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	opts := make([]rcron.Option, 0, 4)

	if s.location != nil {
		opts = append(opts, rcron.WithLocation(s.location))
	}

	switch s.parser {
	case StandardParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	case SecondsParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Second|rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	}

	opts = append(opts, rcron.WithChain(
		rcron.Recover(&errorHandlerAdapter{handler: s.errorHandler}),
	))

	if s.logLevel > LogLevelSilent {
		opts = append(opts, rcron.WithLogger(&loggerAdapter{logger: s.logger, level: s.logLevel}))
	}
	return opts
}
