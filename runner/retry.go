package runner

import (
	"math"
	"time"

	formversion "github.com/goliatone/go-formversion"
)

// RetryStrategy returns the wait before the next attempt. attempt starts at
// 0 and grows after each failure.
type RetryStrategy interface {
	SleepDuration(attempt int, err error) time.Duration
}

// NoDelayStrategy retries immediately.
type NoDelayStrategy struct{}

func (NoDelayStrategy) SleepDuration(int, error) time.Duration {
	return 0
}

// ExponentialBackoffStrategy waits Base * Factor^attempt, capped at Max.
type ExponentialBackoffStrategy struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

func (e ExponentialBackoffStrategy) SleepDuration(attempt int, _ error) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	factor := e.Factor
	if factor <= 0 {
		factor = 1
	}
	delay := time.Duration(float64(e.Base) * math.Pow(factor, float64(attempt)))
	if e.Max > 0 && delay > e.Max {
		return e.Max
	}
	return delay
}

// Retryable is the default retry predicate. Errors that describe the input
// or a missing template fail the same way on every attempt and are not
// retried.
func Retryable(err error) bool {
	switch formversion.ErrorCode(err) {
	case formversion.ErrCodeTemplateNotFound,
		formversion.ErrCodeInvalidApplication,
		formversion.ErrCodeInvalidConfig,
		formversion.ErrCodeInvalidMessage,
		formversion.ErrCodeHandlerPanic:
		return false
	}
	return true
}
