// Package ext defines the extension system for Conductor.
// Extensions are notified of call lifecycle events (submitted, started,
// succeeded, failed, etc.) and can react to them.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/conductor/call"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Call lifecycle hooks
// ──────────────────────────────────────────────────

// CallSubmitted is called once the coordinator has decided a call's
// response, including rejected calls that will never be queued.
type CallSubmitted interface {
	OnCallSubmitted(ctx context.Context, rep *call.Report) error
}

// CallEnqueued is called after a task enters the task queue.
type CallEnqueued interface {
	OnCallEnqueued(ctx context.Context, rep *call.Report) error
}

// CallStarted is called when the task queue begins executing a call.
type CallStarted interface {
	OnCallStarted(ctx context.Context, rep *call.Report) error
}

// CallSucceeded is called after a call finishes successfully.
type CallSucceeded interface {
	OnCallSucceeded(ctx context.Context, rep *call.Report, elapsed time.Duration) error
}

// CallFailed is called when a call fails terminally.
type CallFailed interface {
	OnCallFailed(ctx context.Context, rep *call.Report, err error) error
}

// CallRetrying is called when a failed attempt will be retried.
type CallRetrying interface {
	OnCallRetrying(ctx context.Context, rep *call.Report, attempt int, delay time.Duration) error
}

// CallCanceled is called when a call is canceled or dequeued unfinished.
type CallCanceled interface {
	OnCallCanceled(ctx context.Context, rep *call.Report) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// ScheduleFired is called when a schedule entry submits a call.
type ScheduleFired interface {
	OnScheduleFired(ctx context.Context, entryName string, rep *call.Report) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
