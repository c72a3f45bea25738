package cron

import "sync"

// ScheduleStatus reports a schedule handle state.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusRunning   ScheduleStatus = "running"
	ScheduleStatusIdle      ScheduleStatus = "idle"
	ScheduleStatusCanceled  ScheduleStatus = "canceled"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusStopped   ScheduleStatus = "stopped"
)

// Handle controls one scheduled job.
type Handle interface {
	Cancel()
	Status() ScheduleStatus
	Err() error
	Runs() int
	Done() <-chan struct{}
	ID() int64
}

type subscription struct {
	scheduler *Scheduler
	id        int64
	entryID   int
	done      chan struct{}

	mu     sync.RWMutex
	status ScheduleStatus
	err    error
	runs   int

	once      sync.Once
	closeOnce sync.Once
}

func (s *subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.scheduler != nil {
			s.scheduler.remove(s.id)
		}
		s.setTerminal(ScheduleStatusCanceled, nil)
	})
}

func (s *subscription) Status() ScheduleStatus {
	if s == nil {
		return ScheduleStatusStopped
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *subscription) Err() error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *subscription) Runs() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs
}

func (s *subscription) Done() <-chan struct{} {
	if s == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

func (s *subscription) ID() int64 {
	if s == nil {
		return 0
	}
	return s.id
}

func (s *subscription) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if isTerminalStatus(s.status) {
		return false
	}
	s.status = ScheduleStatusRunning
	return true
}

func (s *subscription) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.err = err
	if isTerminalStatus(s.status) {
		return
	}
	if err != nil {
		s.status = ScheduleStatusFailed
		return
	}
	s.status = ScheduleStatusIdle
}

func (s *subscription) setTerminal(status ScheduleStatus, err error) {
	s.mu.Lock()
	s.status = status
	s.err = err
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
}

func isTerminalStatus(status ScheduleStatus) bool {
	switch status {
	case ScheduleStatusCanceled, ScheduleStatusStopped:
		return true
	default:
		return false
	}
}
