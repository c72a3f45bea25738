package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	formversion "github.com/goliatone/go-formversion"
)

type countingFunc struct {
	mu        sync.Mutex
	calls     int
	failUntil int
	err       error
}

func (c *countingFunc) fn(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failUntil {
		if c.err != nil {
			return c.err
		}
		return errors.New("transient")
	}
	return nil
}

func quiet() Option {
	return WithLogger(formversion.NewFmtLogger(&bytes.Buffer{}))
}

func TestHandler_NoError_NoRetries(t *testing.T) {
	h := NewHandler(quiet())
	cf := &countingFunc{}

	if err := h.Run(context.Background(), cf.fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf.calls != 1 {
		t.Errorf("expected calls=1, got %d", cf.calls)
	}
	if runs, failures := h.Stats(); runs != 1 || failures != 0 {
		t.Errorf("expected 1 run and 0 failures, got %d and %d", runs, failures)
	}
}

func TestHandler_SuccessOnSecondAttempt(t *testing.T) {
	h := NewHandler(quiet(), WithMaxRetries(3))
	cf := &countingFunc{failUntil: 1}

	if err := h.Run(context.Background(), cf.fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf.calls != 2 {
		t.Errorf("expected calls=2, got %d", cf.calls)
	}
}

func TestHandler_AllAttemptsFail(t *testing.T) {
	h := NewHandler(quiet(), WithMaxRetries(2))
	cf := &countingFunc{failUntil: 5}

	if err := h.Run(context.Background(), cf.fn); err == nil {
		t.Fatal("expected the last error")
	}
	if cf.calls != 3 {
		t.Errorf("expected calls=3 (1 initial + 2 retries), got %d", cf.calls)
	}
	if _, failures := h.Stats(); failures != 1 {
		t.Errorf("expected 1 failed run, got %d", failures)
	}
}

func TestHandler_DoesNotRetryInputErrors(t *testing.T) {
	h := NewHandler(quiet(), WithMaxRetries(3))
	cf := &countingFunc{failUntil: 5, err: formversion.TemplateNotFound("8293", nil)}

	err := h.Run(context.Background(), cf.fn)
	if !formversion.IsNotFound(err) {
		t.Fatalf("expected not found to pass through, got %v", err)
	}
	if cf.calls != 1 {
		t.Errorf("expected a single attempt, got %d", cf.calls)
	}
}

func TestHandler_RetryIf(t *testing.T) {
	h := NewHandler(quiet(), WithMaxRetries(3), WithRetryIf(func(error) bool { return false }))
	cf := &countingFunc{failUntil: 5}

	_ = h.Run(context.Background(), cf.fn)
	if cf.calls != 1 {
		t.Errorf("expected a single attempt, got %d", cf.calls)
	}
}

func TestHandler_Timeout(t *testing.T) {
	h := NewHandler(quiet(), WithTimeout(50*time.Millisecond))

	start := time.Now()
	err := h.Run(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
			return nil
		}
	})
	if time.Since(start) >= 500*time.Millisecond {
		t.Error("expected function to time out quickly, but took too long")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestHandler_BackoffStopsAtDeadline(t *testing.T) {
	h := NewHandler(quiet(),
		WithTimeout(50*time.Millisecond),
		WithMaxRetries(5),
		WithRetryStrategy(ExponentialBackoffStrategy{Base: time.Second}),
	)
	cf := &countingFunc{failUntil: 10}

	start := time.Now()
	err := h.Run(context.Background(), cf.fn)
	if time.Since(start) >= time.Second {
		t.Error("expected backoff to stop at the deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if cf.calls != 1 {
		t.Errorf("expected calls=1, got %d", cf.calls)
	}
}

func TestHandler_Concurrency(t *testing.T) {
	h := NewHandler(quiet(), WithMaxRetries(1))
	cf := &countingFunc{failUntil: 1}
	const goroutines = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Run(context.Background(), cf.fn)
		}()
	}
	wg.Wait()

	if runs, failures := h.Stats(); runs != goroutines || failures != 0 {
		t.Errorf("expected %d runs and no failures, got %d and %d", goroutines, runs, failures)
	}
}

type echoQuery struct{}

func (echoQuery) Query(_ context.Context, msg string) (string, error) {
	return "echo:" + msg, nil
}

func TestRunQueryAndCommand(t *testing.T) {
	h := NewHandler(quiet())

	got, err := RunQuery[string, string](context.Background(), h, echoQuery{}, "hi")
	if err != nil || got != "echo:hi" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}

	var seen string
	cmd := formversion.CommandFunc[string](func(_ context.Context, msg string) error {
		seen = msg
		return nil
	})
	if err := RunCommand[string](context.Background(), h, cmd, "run"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "run" {
		t.Errorf("expected command to receive message, got %q", seen)
	}
}

func TestHandler_RecoversPanics(t *testing.T) {
	var logs bytes.Buffer
	h := NewHandler(WithLogger(formversion.NewFmtLogger(&logs)), WithMaxRetries(3))
	calls := 0

	err := h.Run(context.Background(), func(context.Context) error {
		calls++
		panic("nil template")
	})
	if formversion.ErrorCode(err) != formversion.ErrCodeHandlerPanic {
		t.Fatalf("expected panic error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected panics not to be retried, got %d calls", calls)
	}
	if !strings.Contains(logs.String(), "nil template") {
		t.Errorf("expected panic to be logged, got %q", logs.String())
	}
}

func TestCleanStackTrace(t *testing.T) {
	stack := []byte("goroutine 1 [running]:\nmain.a()\npanic({0x1, 0x2})\n\t/runtime/panic.go:785\nmain.handler()\n\t/app/handler.go:10")
	got := string(cleanStackTrace(stack))
	if got != "main.handler()\n\t/app/handler.go:10" {
		t.Errorf("unexpected stack %q", got)
	}
}
