package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/conductor/call"
)

// PanicError is returned when a callable panics. Stack holds the goroutine
// trace at the point of recovery and ends up in the report's Traceback.
type PanicError struct {
	Name  string
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in call %s: %v", e.Name, e.Value)
}

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to *PanicError and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req *call.Request, next Handler) (res any, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("call handler panicked",
					slog.String("call_name", req.Name),
					slog.String("call_id", req.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				res = nil
				retErr = &PanicError{Name: req.Name, Value: r, Stack: stack}
			}
		}()
		return next(ctx)
	}
}
