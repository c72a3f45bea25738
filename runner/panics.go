package runner

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	formversion "github.com/goliatone/go-formversion"
)

// safeCall runs fn and turns a panic into ErrHandlerPanic, logging the
// stack from the panicking frame down.
func (h *Handler) safeCall(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		stack := make([]byte, 8096)
		stack = cleanStackTrace(stack[:runtime.Stack(stack, false)])
		h.logger.Error("recovered from handler panic: %v\n%s", recovered, stack)

		var source error
		if e, ok := recovered.(error); ok {
			source = e
		} else {
			source = fmt.Errorf("%v", recovered)
		}
		err = formversion.NewError(formversion.ErrHandlerPanic, "", source, map[string]any{
			"panic": fmt.Sprintf("%v", recovered),
		})
	}()
	return fn(ctx)
}

// cleanStackTrace drops the frames above the panic call.
func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			// the panic( line and its file reference
			if i+2 < len(lines) {
				lines = lines[i+2:]
			}
			break
		}
	}
	return []byte(strings.Join(lines, "\n"))
}
