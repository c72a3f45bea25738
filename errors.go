package formversion

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	ErrCodeTemplateNotFound   = "TEMPLATE_NOT_FOUND"
	ErrCodeInvalidApplication = "INVALID_APPLICATION"
	ErrCodeCacheStore         = "CACHE_STORE_FAILED"
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeInvalidMessage     = "INVALID_MESSAGE"
)

var (
	// ErrTemplateNotFound is what resolvers return when a template or
	// version does not exist. The engine propagates it unchanged.
	ErrTemplateNotFound = errors.New("template not found", errors.CategoryNotFound).
				WithTextCode(ErrCodeTemplateNotFound)
	ErrInvalidApplication = errors.New("invalid application", errors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidApplication)
	ErrCacheStore = errors.New("template cache store failure", errors.CategoryExternal).
			WithTextCode(ErrCodeCacheStore)
	ErrInvalidConfig = errors.New("invalid configuration", errors.CategoryValidation).
				WithTextCode(ErrCodeInvalidConfig)
	ErrInvalidMessage = errors.New("invalid message", errors.CategoryValidation).
				WithTextCode(ErrCodeInvalidMessage)
)

// NewError clones base with a specific message, source and metadata.
func NewError(base *errors.Error, message string, source error, metadata map[string]any) *errors.Error {
	if base == nil {
		base = ErrInvalidApplication
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// TemplateNotFound builds a not-found error for the given template.
func TemplateNotFound(ehcName string, metadata map[string]any) *errors.Error {
	meta := map[string]any{"ehc": ehcName}
	for k, v := range metadata {
		meta[k] = v
	}
	return NewError(ErrTemplateNotFound, "template not found: "+ehcName, nil, meta)
}

// ErrorCode returns the text code of err, if it carries one.
func ErrorCode(err error) string {
	var ge *errors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsNotFound reports whether err means a template is genuinely absent.
func IsNotFound(err error) bool {
	return ErrorCode(err) == ErrCodeTemplateNotFound
}

const (
	ErrCodeNoHandler        = "NO_HANDLER"
	ErrCodeAmbiguousHandler = "AMBIGUOUS_HANDLER"
)

var (
	// ErrNoHandler is returned when a message is dispatched without a
	// subscribed handler.
	ErrNoHandler = errors.New("no handler subscribed", errors.CategoryHandler).
			WithTextCode(ErrCodeNoHandler)
	ErrAmbiguousHandler = errors.New("more than one query handler subscribed", errors.CategoryHandler).
				WithTextCode(ErrCodeAmbiguousHandler)
)

const ErrCodeHandlerPanic = "HANDLER_PANIC"

// ErrHandlerPanic is returned in place of a panic raised by a handler.
var ErrHandlerPanic = errors.New("handler panicked", errors.CategoryHandler).
	WithTextCode(ErrCodeHandlerPanic)
