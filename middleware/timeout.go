package middleware

import (
	"context"
	"log/slog"

	"github.com/xraph/conductor/call"
)

// Timeout returns middleware that enforces the request's per-attempt
// deadline. When the deadline passes the context is canceled and the
// callable should return context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req *call.Request, next Handler) (any, error) {
		if req.Timeout > 0 {
			logger.Debug("call timeout set",
				slog.String("call_id", req.ID.String()),
				slog.Duration("timeout", req.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
