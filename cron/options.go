package cron

import (
	"fmt"
	"time"

	formversion "github.com/goliatone/go-formversion"
)

// LogLevel controls how much of the cron runtime's own activity is logged.
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// Parser selects the accepted cron expression syntax.
type Parser int

const (
	DefaultParser Parser = iota
	StandardParser
	SecondsParser
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the logger for job failures and cron runtime messages.
func WithLogger(logger formversion.Logger) Option {
	return func(s *Scheduler) {
		s.logger = formversion.NormalizeLogger(logger)
	}
}

// WithLogLevel sets the verbosity of cron runtime messages.
func WithLogLevel(level LogLevel) Option {
	return func(s *Scheduler) {
		s.logLevel = level
	}
}

// WithErrorHandler is called with every job error and recovered panic.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		if handler != nil {
			s.errorHandler = handler
		}
	}
}

// WithParser sets the cron expression syntax.
func WithParser(p Parser) Option {
	return func(s *Scheduler) {
		s.parser = p
	}
}

// loggerAdapter adapts Logger to robfig/cron's logger
type loggerAdapter struct {
	logger formversion.Logger
	level  LogLevel
}

func (l *loggerAdapter) Info(msg string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		l.logger.Debug("cron: %s %v", msg, args)
	}
}

func (l *loggerAdapter) Error(err error, msg string, args ...interface{}) {
	if l.level >= LogLevelError {
		l.logger.Error("cron: %s %v: %v", msg, args, err)
	}
}

// errorHandlerAdapter routes recovered panics to the error handler
type errorHandlerAdapter struct {
	handler func(error)
}

func (e *errorHandlerAdapter) Info(msg string, args ...interface{}) {}

func (e *errorHandlerAdapter) Error(err error, msg string, args ...interface{}) {
	if e.handler == nil {
		return
	}
	if err != nil {
		e.handler(err)
		return
	}
	e.handler(fmt.Errorf("%s %v", msg, args))
}
