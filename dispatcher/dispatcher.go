// Package dispatcher routes engine messages to the handlers subscribed for
// their type.
package dispatcher

import (
	"context"
	"errors"
	"sync"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/runner"
)

// Dispatcher keeps handlers by message type.
type Dispatcher struct {
	mu        sync.RWMutex
	handlers  map[string][]any
	exitOnErr bool
	logger    formversion.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithExitOnError stops Dispatch at the first failing command handler.
func WithExitOnError() Option {
	return func(d *Dispatcher) {
		d.exitOnErr = true
	}
}

// WithLogger sets the logger passed to handler runners by default.
func WithLogger(logger formversion.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = formversion.NormalizeLogger(logger)
	}
}

// New builds an empty dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string][]any),
		logger:   formversion.NewFmtLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Dispatcher) register(msgType string, handler any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = append(d.handlers[msgType], handler)
}

func (d *Dispatcher) handlersFor(msgType string) []any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]any(nil), d.handlers[msgType]...)
}

func (d *Dispatcher) newRunner(opts []runner.Option) *runner.Handler {
	return runner.NewHandler(append([]runner.Option{runner.WithLogger(d.logger)}, opts...)...)
}

// SubscribeCommand adds cmd to the handlers of T.
func SubscribeCommand[T formversion.Message](d *Dispatcher, cmd formversion.Commander[T], opts ...runner.Option) Subscription {
	var msg T
	wrapper := &commandWrapper[T]{runner: d.newRunner(opts), cmd: cmd}
	d.register(msg.Type(), wrapper)
	return &subs{dispatcher: d, msgType: msg.Type(), handler: wrapper}
}

// SubscribeQuery sets qry as the handler of T. Query fails when more than
// one is subscribed.
func SubscribeQuery[T formversion.Message, R any](d *Dispatcher, qry formversion.Querier[T, R], opts ...runner.Option) Subscription {
	var msg T
	wrapper := &queryWrapper[T, R]{runner: d.newRunner(opts), qry: qry}
	d.register(msg.Type(), wrapper)
	return &subs{dispatcher: d, msgType: msg.Type(), handler: wrapper}
}

// Dispatch runs every command handler of T. Handler errors are returned
// unchanged, joined when more than one handler fails.
func Dispatch[T formversion.Message](ctx context.Context, d *Dispatcher, msg T) error {
	if err := formversion.ValidateMessage(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var wrappers []*commandWrapper[T]
	for _, h := range d.handlersFor(msg.Type()) {
		if cw, ok := h.(*commandWrapper[T]); ok {
			wrappers = append(wrappers, cw)
		}
	}
	if len(wrappers) == 0 {
		return noHandler(msg.Type())
	}

	var errs error
	for _, cw := range wrappers {
		if err := runner.RunCommand(ctx, cw.runner, cw.cmd, msg); err != nil {
			if d.exitOnErr {
				return err
			}
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Query runs the single query handler of T.
func Query[T formversion.Message, R any](ctx context.Context, d *Dispatcher, msg T) (R, error) {
	var zero R
	if err := formversion.ValidateMessage(msg); err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var wrappers []*queryWrapper[T, R]
	for _, h := range d.handlersFor(msg.Type()) {
		if qw, ok := h.(*queryWrapper[T, R]); ok {
			wrappers = append(wrappers, qw)
		}
	}
	switch len(wrappers) {
	case 0:
		return zero, noHandler(msg.Type())
	case 1:
		return runner.RunQuery(ctx, wrappers[0].runner, wrappers[0].qry, msg)
	default:
		return zero, formversion.NewError(formversion.ErrAmbiguousHandler, "", nil, map[string]any{
			"type":     msg.Type(),
			"handlers": len(wrappers),
		})
	}
}

func noHandler(msgType string) error {
	return formversion.NewError(formversion.ErrNoHandler, "no handler subscribed for "+msgType, nil, map[string]any{
		"type": msgType,
	})
}

type commandWrapper[T formversion.Message] struct {
	runner *runner.Handler
	cmd    formversion.Commander[T]
}

type queryWrapper[T formversion.Message, R any] struct {
	runner *runner.Handler
	qry    formversion.Querier[T, R]
}
