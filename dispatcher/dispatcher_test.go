package dispatcher

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/runner"
)

type purge struct{ EHC string }

func (purge) Type() string { return "test.purge" }

func (p purge) Validate() error {
	if p.EHC == "" {
		return errors.New("ehc required")
	}
	return nil
}

type lookup struct{ EHC string }

func (lookup) Type() string    { return "test.lookup" }
func (lookup) Validate() error { return nil }

func newDispatcher(opts ...Option) *Dispatcher {
	return New(append([]Option{WithLogger(formversion.NewFmtLogger(&bytes.Buffer{}))}, opts...)...)
}

func TestDispatchRunsEveryCommandHandler(t *testing.T) {
	d := newDispatcher()
	var calls atomic.Int32
	handler := formversion.CommandFunc[purge](func(context.Context, purge) error {
		calls.Add(1)
		return nil
	})
	SubscribeCommand[purge](d, handler)
	sub := SubscribeCommand[purge](d, handler)

	require.NoError(t, Dispatch(context.Background(), d, purge{EHC: "8293"}))
	assert.Equal(t, int32(2), calls.Load())

	sub.Unsubscribe()
	require.NoError(t, Dispatch(context.Background(), d, purge{EHC: "8293"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatchErrors(t *testing.T) {
	d := newDispatcher()

	err := Dispatch(context.Background(), d, purge{EHC: "8293"})
	assert.Equal(t, formversion.ErrCodeNoHandler, formversion.ErrorCode(err))

	boom := errors.New("boom")
	SubscribeCommand[purge](d, formversion.CommandFunc[purge](func(context.Context, purge) error { return boom }))

	err = Dispatch(context.Background(), d, purge{})
	assert.Equal(t, formversion.ErrCodeInvalidMessage, formversion.ErrorCode(err))

	err = Dispatch(context.Background(), d, purge{EHC: "8293"})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Dispatch(ctx, d, purge{EHC: "8293"}), context.Canceled)
}

func TestDispatchExitOnError(t *testing.T) {
	d := newDispatcher(WithExitOnError())
	var second atomic.Bool
	SubscribeCommand[purge](d, formversion.CommandFunc[purge](func(context.Context, purge) error {
		return errors.New("first")
	}))
	SubscribeCommand[purge](d, formversion.CommandFunc[purge](func(context.Context, purge) error {
		second.Store(true)
		return nil
	}))

	require.Error(t, Dispatch(context.Background(), d, purge{EHC: "8293"}))
	assert.False(t, second.Load())
}

func TestDispatchRetriesWithRunnerOptions(t *testing.T) {
	d := newDispatcher()
	var attempts atomic.Int32
	SubscribeCommand[purge](d, formversion.CommandFunc[purge](func(context.Context, purge) error {
		if attempts.Add(1) < 3 {
			return errors.New("store down")
		}
		return nil
	}), runner.WithMaxRetries(2))

	require.NoError(t, Dispatch(context.Background(), d, purge{EHC: "8293"}))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQuery(t *testing.T) {
	d := newDispatcher()

	_, err := Query[lookup, string](context.Background(), d, lookup{EHC: "8293"})
	assert.Equal(t, formversion.ErrCodeNoHandler, formversion.ErrorCode(err))

	handler := formversion.QueryFunc[lookup, string](func(_ context.Context, msg lookup) (string, error) {
		return "exa-for-" + msg.EHC, nil
	})
	sub := SubscribeQuery[lookup, string](d, handler)

	got, err := Query[lookup, string](context.Background(), d, lookup{EHC: "8293"})
	require.NoError(t, err)
	assert.Equal(t, "exa-for-8293", got)

	SubscribeQuery[lookup, string](d, handler)
	_, err = Query[lookup, string](context.Background(), d, lookup{EHC: "8293"})
	assert.Equal(t, formversion.ErrCodeAmbiguousHandler, formversion.ErrorCode(err))

	sub.Unsubscribe()
	_, err = Query[lookup, string](context.Background(), d, lookup{EHC: "8293"})
	assert.NoError(t, err)
}

func TestQueryPropagatesHandlerErrorsUnchanged(t *testing.T) {
	d := newDispatcher()
	SubscribeQuery[lookup, string](d, formversion.QueryFunc[lookup, string](func(_ context.Context, msg lookup) (string, error) {
		return "", formversion.TemplateNotFound(msg.EHC, nil)
	}))

	_, err := Query[lookup, string](context.Background(), d, lookup{EHC: "9999"})
	assert.True(t, formversion.IsNotFound(err))
}
