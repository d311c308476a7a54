// Package taskqueue is the in-process task queue the coordinator hands
// accepted calls to. Workers start waiting tasks in FIFO order once their
// dependencies have finished, run the registered callable through a
// middleware chain and retry failures with backoff.
package taskqueue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/backoff"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/middleware"
	"github.com/xraph/conductor/queue"
)

type entry struct {
	task       *call.Task
	seq        uint64
	ctx        context.Context
	cancel     context.CancelFunc
	finishedAt time.Time

	// executing is set while a worker runs the callable. A cancel that
	// arrives meanwhile only sets cancelRequested; the worker finishes the
	// task once the callable returns, so its claims outlive the callable.
	executing       bool
	cancelRequested bool
}

// Queue runs call tasks on a fixed pool of workers.
type Queue struct {
	registry     *call.Registry
	extensions   *ext.Registry
	limits       *queue.Manager
	backoff      backoff.Strategy
	middleware   []middleware.Middleware
	mw           middleware.Middleware
	logger       *slog.Logger
	concurrency  int
	lanes        []string
	pollInterval time.Duration
	retention    time.Duration
	reapInterval time.Duration

	// submitMu is the submission critical section handed out by Lock.
	submitMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	tasks   map[string]*entry
	pending []*entry

	wake    chan struct{}
	stateMu sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Queue that resolves callables through registry.
func New(registry *call.Registry, opts ...Option) *Queue {
	q := &Queue{
		registry:     registry,
		backoff:      backoff.Default(),
		logger:       slog.Default(),
		concurrency:  10,
		lanes:        []string{call.DefaultQueue},
		pollInterval: time.Second,
		retention:    time.Hour,
		reapInterval: time.Minute,
		tasks:        make(map[string]*entry),
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.extensions == nil {
		q.extensions = ext.NewRegistry(q.logger)
	}
	mws := make([]middleware.Middleware, 0, len(q.middleware)+2)
	mws = append(mws, middleware.Recover(q.logger))
	mws = append(mws, q.middleware...)
	mws = append(mws, middleware.Timeout(q.logger))
	q.mw = middleware.Chain(mws...)
	return q
}

// Lock enters the submission critical section. It is not reentrant.
func (q *Queue) Lock() { q.submitMu.Lock() }

// Unlock leaves the submission critical section.
func (q *Queue) Unlock() { q.submitMu.Unlock() }

// Lanes returns the lanes this queue serves.
func (q *Queue) Lanes() []string { return append([]string(nil), q.lanes...) }

// ──────────────────────────────────────────────────
// Task bookkeeping
// ──────────────────────────────────────────────────

// Enqueue adds t to the queue and fires its enqueue hooks. The task becomes
// eligible to run once the hooks return.
func (q *Queue) Enqueue(ctx context.Context, t *call.Task) error {
	lane := laneOf(t.Request())
	if !slices.Contains(q.lanes, lane) {
		return fmt.Errorf("%w: %q", conductor.ErrUnknownQueue, lane)
	}

	key := t.ID().String()
	q.mu.Lock()
	if _, dup := q.tasks[key]; dup {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", conductor.ErrCallAlreadyExists, key)
	}
	q.seq++
	e := &entry{task: t, seq: q.seq}
	q.tasks[key] = e
	q.mu.Unlock()

	t.FireEnqueue(ctx)
	q.extensions.EmitCallEnqueued(ctx, t.Report())

	q.mu.Lock()
	if q.tasks[key] == e && t.State() == call.StateWaiting {
		q.pending = append(q.pending, e)
	}
	q.mu.Unlock()

	q.notify()
	return nil
}

// Dequeue removes t from the queue. A task that has not finished yet is
// canceled first. Removing an unknown task is a no-op.
func (q *Queue) Dequeue(ctx context.Context, t *call.Task) error {
	key := t.ID().String()

	q.mu.Lock()
	e, ok := q.tasks[key]
	var deferred bool
	if ok {
		delete(q.tasks, key)
		q.removePendingLocked(e)
		deferred = q.requestCancelLocked(e)
	}
	q.mu.Unlock()
	if !ok {
		return nil
	}

	switch {
	case deferred:
		q.interrupt(e)
	case !t.State().Terminal():
		q.finish(ctx, e, call.StateCanceled, nil, nil)
	default:
		t.FireDequeue(ctx)
	}
	return nil
}

// Cancel stops t. A waiting task never runs and is canceled at once. A
// task whose callable is running has its context canceled and becomes
// CANCELED only when the callable returns. It reports false for a task that
// already finished and fails with conductor.ErrCallNotFound for a task the
// queue does not know.
func (q *Queue) Cancel(ctx context.Context, t *call.Task) (bool, error) {
	q.mu.Lock()
	e, ok := q.tasks[t.ID().String()]
	var deferred bool
	if ok {
		q.removePendingLocked(e)
		deferred = q.requestCancelLocked(e)
	}
	q.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", conductor.ErrCallNotFound, t.ID())
	}

	if deferred {
		q.interrupt(e)
		q.logger.Info("call cancel requested", slog.String("call_id", t.ID().String()))
		return true, nil
	}
	if !q.finish(ctx, e, call.StateCanceled, nil, nil) {
		return false, nil
	}
	q.logger.Info("call canceled", slog.String("call_id", t.ID().String()))
	return true, nil
}

// requestCancelLocked marks e for cancellation if its callable is running
// and reports whether it did.
func (q *Queue) requestCancelLocked(e *entry) bool {
	if !e.executing || e.task.State().Terminal() {
		return false
	}
	e.cancelRequested = true
	return true
}

func (q *Queue) cancelPending(e *entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return e.cancelRequested
}

// Get returns the task for callID, or nil.
func (q *Queue) Get(callID id.CallID) *call.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.tasks[callID.String()]; ok {
		return e.task
	}
	return nil
}

// AllTasks returns every known task in enqueue order.
func (q *Queue) AllTasks() []*call.Task {
	return q.collect(func(*call.Task) bool { return true })
}

// IncompleteTasks returns the tasks that have not reached a terminal state,
// in enqueue order.
func (q *Queue) IncompleteTasks() []*call.Task {
	return q.collect(func(t *call.Task) bool { return !t.State().Terminal() })
}

func (q *Queue) collect(keep func(*call.Task) bool) []*call.Task {
	q.mu.Lock()
	entries := make([]*entry, 0, len(q.tasks))
	for _, e := range q.tasks {
		entries = append(entries, e)
	}
	q.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]*call.Task, 0, len(entries))
	for _, e := range entries {
		if keep(e.task) {
			out = append(out, e.task)
		}
	}
	return out
}

// Complete finishes a running asynchronous call with result. It reports
// whether the call was tracked and still running.
func (q *Queue) Complete(ctx context.Context, callID id.CallID, result any) bool {
	e := q.runningEntry(callID)
	if e == nil {
		return false
	}
	return q.finish(ctx, e, call.StateSucceeded, func(r *call.Report) { r.Result = result }, nil)
}

// Fail finishes a running asynchronous call with callErr and traceback.
func (q *Queue) Fail(ctx context.Context, callID id.CallID, callErr error, traceback string) bool {
	e := q.runningEntry(callID)
	if e == nil {
		return false
	}
	return q.finish(ctx, e, call.StateFailed, func(r *call.Report) {
		if callErr != nil {
			r.Error = callErr.Error()
		}
		r.Traceback = traceback
	}, callErr)
}

func (q *Queue) runningEntry(callID id.CallID) *entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.tasks[callID.String()]
	if !ok || e.task.State() != call.StateRunning {
		return nil
	}
	return e
}

// finish moves e to a terminal state, fires the dequeue hooks and emits the
// matching lifecycle event. It reports false when e had already finished.
func (q *Queue) finish(ctx context.Context, e *entry, state call.State, mutate func(*call.Report), callErr error) bool {
	if err := e.task.Transition(state, mutate); err != nil {
		return false
	}
	ctx = context.WithoutCancel(ctx)

	q.mu.Lock()
	e.finishedAt = time.Now()
	q.removePendingLocked(e)
	q.mu.Unlock()

	e.task.FireDequeue(ctx)

	rep := e.task.Report()
	switch state {
	case call.StateSucceeded:
		var elapsed time.Duration
		if rep.StartedAt != nil && rep.CompletedAt != nil {
			elapsed = rep.CompletedAt.Sub(*rep.StartedAt)
		}
		q.extensions.EmitCallSucceeded(ctx, rep, elapsed)
	case call.StateFailed:
		if callErr == nil {
			callErr = fmt.Errorf("%s", rep.Error)
		}
		q.extensions.EmitCallFailed(ctx, rep, callErr)
	case call.StateCanceled:
		q.extensions.EmitCallCanceled(ctx, rep)
	}

	q.notify()
	return true
}

// interrupt cancels the context of a running callable, if any.
func (q *Queue) interrupt(e *entry) {
	q.mu.Lock()
	cancel := e.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (q *Queue) removePendingLocked(e *entry) {
	for i, p := range q.pending {
		if p == e {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func laneOf(req *call.Request) string {
	if req.Queue == "" {
		return call.DefaultQueue
	}
	return req.Queue
}
