package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conductor/call"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time.
type callSubmittedEntry struct {
	name string
	hook CallSubmitted
}

type callEnqueuedEntry struct {
	name string
	hook CallEnqueued
}

type callStartedEntry struct {
	name string
	hook CallStarted
}

type callSucceededEntry struct {
	name string
	hook CallSucceeded
}

type callFailedEntry struct {
	name string
	hook CallFailed
}

type callRetryingEntry struct {
	name string
	hook CallRetrying
}

type callCanceledEntry struct {
	name string
	hook CallCanceled
}

type scheduleFiredEntry struct {
	name string
	hook ScheduleFired
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// A nil *Registry is valid and emits nothing.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	callSubmitted []callSubmittedEntry
	callEnqueued  []callEnqueuedEntry
	callStarted   []callStartedEntry
	callSucceeded []callSucceededEntry
	callFailed    []callFailedEntry
	callRetrying  []callRetryingEntry
	callCanceled  []callCanceledEntry
	scheduleFired []scheduleFiredEntry
	shutdown      []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(CallSubmitted); ok {
		r.callSubmitted = append(r.callSubmitted, callSubmittedEntry{name, h})
	}
	if h, ok := e.(CallEnqueued); ok {
		r.callEnqueued = append(r.callEnqueued, callEnqueuedEntry{name, h})
	}
	if h, ok := e.(CallStarted); ok {
		r.callStarted = append(r.callStarted, callStartedEntry{name, h})
	}
	if h, ok := e.(CallSucceeded); ok {
		r.callSucceeded = append(r.callSucceeded, callSucceededEntry{name, h})
	}
	if h, ok := e.(CallFailed); ok {
		r.callFailed = append(r.callFailed, callFailedEntry{name, h})
	}
	if h, ok := e.(CallRetrying); ok {
		r.callRetrying = append(r.callRetrying, callRetryingEntry{name, h})
	}
	if h, ok := e.(CallCanceled); ok {
		r.callCanceled = append(r.callCanceled, callCanceledEntry{name, h})
	}
	if h, ok := e.(ScheduleFired); ok {
		r.scheduleFired = append(r.scheduleFired, scheduleFiredEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension {
	if r == nil {
		return nil
	}
	return r.extensions
}

// ──────────────────────────────────────────────────
// Call event emitters
// ──────────────────────────────────────────────────

// EmitCallSubmitted notifies all extensions that implement CallSubmitted.
func (r *Registry) EmitCallSubmitted(ctx context.Context, rep *call.Report) {
	if r == nil {
		return
	}
	for _, e := range r.callSubmitted {
		if err := e.hook.OnCallSubmitted(ctx, rep); err != nil {
			r.logHookError("OnCallSubmitted", e.name, err)
		}
	}
}

// EmitCallEnqueued notifies all extensions that implement CallEnqueued.
func (r *Registry) EmitCallEnqueued(ctx context.Context, rep *call.Report) {
	if r == nil {
		return
	}
	for _, e := range r.callEnqueued {
		if err := e.hook.OnCallEnqueued(ctx, rep); err != nil {
			r.logHookError("OnCallEnqueued", e.name, err)
		}
	}
}

// EmitCallStarted notifies all extensions that implement CallStarted.
func (r *Registry) EmitCallStarted(ctx context.Context, rep *call.Report) {
	if r == nil {
		return
	}
	for _, e := range r.callStarted {
		if err := e.hook.OnCallStarted(ctx, rep); err != nil {
			r.logHookError("OnCallStarted", e.name, err)
		}
	}
}

// EmitCallSucceeded notifies all extensions that implement CallSucceeded.
func (r *Registry) EmitCallSucceeded(ctx context.Context, rep *call.Report, elapsed time.Duration) {
	if r == nil {
		return
	}
	for _, e := range r.callSucceeded {
		if err := e.hook.OnCallSucceeded(ctx, rep, elapsed); err != nil {
			r.logHookError("OnCallSucceeded", e.name, err)
		}
	}
}

// EmitCallFailed notifies all extensions that implement CallFailed.
func (r *Registry) EmitCallFailed(ctx context.Context, rep *call.Report, callErr error) {
	if r == nil {
		return
	}
	for _, e := range r.callFailed {
		if err := e.hook.OnCallFailed(ctx, rep, callErr); err != nil {
			r.logHookError("OnCallFailed", e.name, err)
		}
	}
}

// EmitCallRetrying notifies all extensions that implement CallRetrying.
func (r *Registry) EmitCallRetrying(ctx context.Context, rep *call.Report, attempt int, delay time.Duration) {
	if r == nil {
		return
	}
	for _, e := range r.callRetrying {
		if err := e.hook.OnCallRetrying(ctx, rep, attempt, delay); err != nil {
			r.logHookError("OnCallRetrying", e.name, err)
		}
	}
}

// EmitCallCanceled notifies all extensions that implement CallCanceled.
func (r *Registry) EmitCallCanceled(ctx context.Context, rep *call.Report) {
	if r == nil {
		return
	}
	for _, e := range r.callCanceled {
		if err := e.hook.OnCallCanceled(ctx, rep); err != nil {
			r.logHookError("OnCallCanceled", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitScheduleFired notifies all extensions that implement ScheduleFired.
func (r *Registry) EmitScheduleFired(ctx context.Context, entryName string, rep *call.Report) {
	if r == nil {
		return
	}
	for _, e := range r.scheduleFired {
		if err := e.hook.OnScheduleFired(ctx, entryName, rep); err != nil {
			r.logHookError("OnScheduleFired", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	if r == nil {
		return
	}
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
