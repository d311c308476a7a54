package taskqueue

import (
	"log/slog"
	"time"

	"github.com/xraph/conductor/backoff"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/middleware"
	"github.com/xraph/conductor/queue"
)

// Option configures a Queue.
type Option func(*Queue)

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.concurrency = n
		}
	}
}

// WithQueues sets the lanes the queue serves. Enqueueing a call for any
// other lane fails with conductor.ErrUnknownQueue.
func WithQueues(lanes ...string) Option {
	return func(q *Queue) {
		if len(lanes) > 0 {
			q.lanes = append([]string(nil), lanes...)
		}
	}
}

// WithPollInterval sets how often idle workers rescan the pending list.
func WithPollInterval(d time.Duration) Option {
	return func(q *Queue) { q.pollInterval = d }
}

// WithRetention sets how long terminal tasks stay queryable. Zero or
// negative keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(q *Queue) { q.retention = d }
}

// WithReapInterval sets how often the reaper looks for expired tasks.
func WithReapInterval(d time.Duration) Option {
	return func(q *Queue) { q.reapInterval = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithExtensions sets the lifecycle extension registry.
func WithExtensions(r *ext.Registry) Option {
	return func(q *Queue) { q.extensions = r }
}

// WithMiddleware appends middleware around every callable invocation.
// Panic recovery and per-call timeouts are always installed.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(q *Queue) { q.middleware = append(q.middleware, mws...) }
}

// WithBackoff sets the delay strategy between retry attempts.
func WithBackoff(s backoff.Strategy) Option {
	return func(q *Queue) { q.backoff = s }
}

// WithLimits installs per-lane rate and concurrency limits.
func WithLimits(m *queue.Manager) Option {
	return func(q *Queue) { q.limits = m }
}
