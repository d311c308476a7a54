// Package middleware provides composable middleware for call execution.
// Middleware wraps callable invocations synchronously and can modify
// execution (recover from panics, log, add tracing, etc.).
package middleware

import (
	"context"

	"github.com/xraph/conductor/call"
)

// Handler is the terminal function that runs the callable.
type Handler func(ctx context.Context) (any, error)

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the request being executed, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, req *call.Request, next Handler) (any, error)

// Chain composes multiple middleware into a single Middleware.
// The first middleware in the list is the outermost wrapper.
//
// Example: Chain(logging, recover) executes as:
//
//	logging → recover → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, req *call.Request, next Handler) (any, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (any, error) {
				return mw(ctx, req, prev)
			}
		}
		return h(ctx)
	}
}

// attempt returns the attempt number of the task running in ctx, or 0.
func attempt(ctx context.Context) int {
	if t, ok := call.TaskFromContext(ctx); ok {
		return t.Report().Attempts
	}
	return 0
}
