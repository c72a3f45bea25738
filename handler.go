package formversion

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
)

// Message is implemented by the requests the engine handles.
type Message interface {
	Type() string
	Validate() error
}

// CommandFunc lets a function act as a Commander.
type CommandFunc[T any] func(ctx context.Context, msg T) error

// Execute calls the underlying function
func (f CommandFunc[T]) Execute(ctx context.Context, msg T) error {
	return f(ctx, msg)
}

// Commander executes side effects, such as cache invalidation.
type Commander[T any] interface {
	Execute(ctx context.Context, msg T) error
}

// QueryFunc lets a function act as a Querier.
type QueryFunc[T any, R any] func(ctx context.Context, msg T) (R, error)

// Query calls the underlying function
func (f QueryFunc[T, R]) Query(ctx context.Context, msg T) (R, error) {
	return f(ctx, msg)
}

// Querier returns data without side effects on the caller's state.
type Querier[T any, R any] interface {
	Query(ctx context.Context, msg T) (R, error)
}

func isNilMessage(msg any) bool {
	if msg == nil {
		return true
	}
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Ptr {
		return false
	}
	return v.IsNil()
}

// ValidateMessage rejects nil messages and runs Validate when implemented.
func ValidateMessage(msg any) error {
	if isNilMessage(msg) {
		return NewError(ErrInvalidMessage, "nil message pointer", nil, nil)
	}
	if m, ok := msg.(Message); ok {
		if err := m.Validate(); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "message validation failed").
				WithTextCode(ErrCodeInvalidMessage).
				WithMetadata(map[string]any{"type": m.Type()})
		}
	}
	return nil
}
