package call

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
)

// Hook is a lifecycle listener invoked by the task queue. It receives the
// request and a snapshot of the report at the transition point.
type Hook func(ctx context.Context, req *Request, rep *Report)

// Task binds one Request to its Report and to the lifecycle hooks fired
// around its execution. Safe for concurrent use.
type Task struct {
	mu      sync.RWMutex
	request *Request
	report  *Report

	enqueueHooks []Hook
	startHooks   []Hook
	dequeueHooks []Hook

	dequeued atomic.Bool
}

// NewTask wraps req and rep. A nil rep is replaced by a fresh waiting report.
func NewTask(req *Request, rep *Report) *Task {
	if rep == nil {
		rep = NewReport(req)
	}
	return &Task{request: req, report: rep}
}

// ID returns the call id.
func (t *Task) ID() id.CallID { return t.request.ID }

// Request returns the wrapped request. It must not be mutated once the task
// is enqueued.
func (t *Task) Request() *Request { return t.request }

// Report returns a snapshot of the current report.
func (t *Task) Report() *Report {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.report.Clone()
}

// State returns the current execution state.
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.report.State
}

// Transition moves the report to next, applying mutate under the same lock.
// Backward or repeated transitions fail with conductor.ErrInvalidState.
func (t *Task) Transition(next State, mutate func(*Report)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.report.State
	if !cur.CanTransition(next) {
		return fmt.Errorf("%w: call %s %s → %s", conductor.ErrInvalidState, t.request.ID, cur, next)
	}

	now := time.Now().UTC()
	t.report.State = next
	t.report.UpdatedAt = now
	switch {
	case next == StateRunning:
		t.report.StartedAt = &now
	case next.Terminal():
		t.report.CompletedAt = &now
	}
	if mutate != nil {
		mutate(t.report)
	}
	return nil
}

// Update applies fn to a non-terminal report and reports whether it ran.
func (t *Task) Update(fn func(*Report)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.report.State.Terminal() {
		return false
	}
	fn(t.report)
	t.report.UpdatedAt = time.Now().UTC()
	return true
}

// OnEnqueue appends hooks fired when the task enters the queue.
func (t *Task) OnEnqueue(hooks ...Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enqueueHooks = append(t.enqueueHooks, hooks...)
}

// OnStart appends hooks fired when the task starts running.
func (t *Task) OnStart(hooks ...Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startHooks = append(t.startHooks, hooks...)
}

// OnDequeue appends hooks fired once when the task leaves the queue.
func (t *Task) OnDequeue(hooks ...Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dequeueHooks = append(t.dequeueHooks, hooks...)
}

// FireEnqueue runs the enqueue hooks in registration order.
func (t *Task) FireEnqueue(ctx context.Context) {
	t.fire(ctx, t.hooks(&t.enqueueHooks))
}

// FireStart runs the start hooks in registration order.
func (t *Task) FireStart(ctx context.Context) {
	t.fire(ctx, t.hooks(&t.startHooks))
}

// FireDequeue runs the dequeue hooks on the first call only and reports
// whether they ran.
func (t *Task) FireDequeue(ctx context.Context) bool {
	if !t.dequeued.CompareAndSwap(false, true) {
		return false
	}
	t.fire(ctx, t.hooks(&t.dequeueHooks))
	return true
}

// Dequeued reports whether the dequeue hooks have fired.
func (t *Task) Dequeued() bool { return t.dequeued.Load() }

func (t *Task) hooks(list *[]Hook) []Hook {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Hook(nil), (*list)...)
}

func (t *Task) fire(ctx context.Context, hooks []Hook) {
	for _, h := range hooks {
		h(ctx, t.request, t.Report())
	}
}
