package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conductor/call"
)

// Logging returns middleware that logs call start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req *call.Request, next Handler) (any, error) {
		logger.Info("call started",
			slog.String("call_name", req.Name),
			slog.String("call_id", req.ID.String()),
			slog.String("queue", req.Queue),
			slog.Int("attempt", attempt(ctx)),
		)

		start := time.Now()
		res, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("call failed",
				slog.String("call_name", req.Name),
				slog.String("call_id", req.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("call completed",
				slog.String("call_name", req.Name),
				slog.String("call_id", req.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return res, err
	}
}
