package runner

import (
	"time"

	formversion "github.com/goliatone/go-formversion"
)

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout bounds every run, retries included.
func WithTimeout(t time.Duration) Option {
	return func(h *Handler) {
		h.timeout = t
	}
}

// WithMaxRetries sets how many times a failed run is retried.
func WithMaxRetries(max int) Option {
	return func(h *Handler) {
		if max >= 0 {
			h.maxRetries = max
		}
	}
}

// WithRetryStrategy sets the delay between attempts.
func WithRetryStrategy(s RetryStrategy) Option {
	return func(h *Handler) {
		if s != nil {
			h.retryStrategy = s
		}
	}
}

// WithRetryIf replaces the predicate deciding whether an error is retried.
func WithRetryIf(fn func(error) bool) Option {
	return func(h *Handler) {
		if fn != nil {
			h.retryIf = fn
		}
	}
}

// WithLogger sets the logger for failed attempts.
func WithLogger(l formversion.Logger) Option {
	return func(h *Handler) {
		h.logger = formversion.NormalizeLogger(l)
	}
}
