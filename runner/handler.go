// Package runner executes message handlers with a timeout and retries.
package runner

import (
	"context"
	"sync"
	"time"

	formversion "github.com/goliatone/go-formversion"
)

// Handler runs functions with its retry and timeout settings. It is safe for
// concurrent use.
type Handler struct {
	mu sync.Mutex

	logger        formversion.Logger
	retryStrategy RetryStrategy
	retryIf       func(error) bool

	runs     int
	failures int

	maxRetries int
	timeout    time.Duration
}

// NewHandler builds a handler. Without options a run is attempted once.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		logger:        formversion.NewFmtLogger(nil),
		retryStrategy: NoDelayStrategy{},
		retryIf:       Retryable,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Run calls fn until it succeeds, a non retryable error is returned, the
// retries are exhausted or ctx is done. It returns the last error.
func (h *Handler) Run(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := h.contextWithTimeout(ctx)
	defer cancel()

	var err error
attempts:
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if err = h.safeCall(ctx, fn); err == nil {
			break
		}
		if attempt == h.maxRetries || !h.retryIf(err) {
			break
		}

		h.logger.Warn("handler attempt %d of %d failed: %v", attempt+1, h.maxRetries+1, err)
		if delay := h.retryStrategy.SleepDuration(attempt, err); delay > 0 {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break attempts
			case <-time.After(delay):
			}
		}
	}

	h.mu.Lock()
	h.runs++
	if err != nil {
		h.failures++
	}
	h.mu.Unlock()
	return err
}

// Stats returns how many runs completed and how many of them failed.
func (h *Handler) Stats() (runs, failures int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs, h.failures
}

func (h *Handler) contextWithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(parent, h.timeout)
	}
	return parent, func() {}
}

// RunCommand executes c through h.
func RunCommand[T any](ctx context.Context, h *Handler, c formversion.Commander[T], msg T) error {
	return h.Run(ctx, func(ctx context.Context) error {
		return c.Execute(ctx, msg)
	})
}

// RunQuery executes q through h and returns the result of the last attempt.
func RunQuery[T any, R any](ctx context.Context, h *Handler, q formversion.Querier[T, R], msg T) (R, error) {
	var result R
	err := h.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = q.Query(ctx, msg)
		return err
	})
	return result, err
}
