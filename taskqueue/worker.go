package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/middleware"
)

// Start launches the worker goroutines and the reaper. It returns
// immediately; calling it on a running queue is a no-op.
func (q *Queue) Start(_ context.Context) error {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()

	if q.running {
		return nil
	}
	q.running = true
	q.stopCh = make(chan struct{})

	q.logger.Info("task queue starting",
		slog.Int("concurrency", q.concurrency),
		slog.Any("queues", q.lanes),
	)

	for range q.concurrency {
		q.wg.Add(1)
		go q.work(q.stopCh)
	}
	if q.retention > 0 && q.reapInterval > 0 {
		q.wg.Add(1)
		go q.reapLoop(q.stopCh)
	}
	return nil
}

// Stop signals the workers to stop and waits for running callables to
// return. When ctx expires first, running callables have their contexts
// canceled.
func (q *Queue) Stop(ctx context.Context) error {
	q.stateMu.Lock()
	if !q.running {
		q.stateMu.Unlock()
		return nil
	}
	q.running = false
	close(q.stopCh)
	q.stateMu.Unlock()

	q.logger.Info("task queue stopping")

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("task queue stopped gracefully")
	case <-ctx.Done():
		q.logger.Warn("task queue shutdown timed out, cancelling running calls")
		q.cancelRunning()
		<-done
	}
	return nil
}

func (q *Queue) cancelRunning() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.tasks {
		if e.cancel != nil {
			e.cancel()
		}
	}
}

func (q *Queue) work(stopCh <-chan struct{}) {
	defer q.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		e, doomed := q.next()
		for _, d := range doomed {
			q.finish(context.Background(), d.entry, call.StateCanceled, func(r *call.Report) {
				r.Error = d.reason
			}, nil)
			q.logger.Info("call canceled by dependency",
				slog.String("call_id", d.entry.task.ID().String()),
				slog.String("reason", d.reason),
			)
		}
		if e == nil {
			select {
			case <-stopCh:
				return
			case <-q.wake:
			case <-time.After(q.pollInterval):
			}
			continue
		}
		q.execute(e)
	}
}

type doomedEntry struct {
	entry  *entry
	reason string
}

// next claims the first pending task that may start now and moves it to
// RUNNING. Tasks whose dependencies can no longer be met are returned in
// doomed so the caller can cancel them outside the lock.
func (q *Queue) next() (*entry, []doomedEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var doomed []doomedEntry
	for i := 0; i < len(q.pending); i++ {
		e := q.pending[i]
		ready, reason := q.readyLocked(e.task)
		if reason != "" {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			i--
			doomed = append(doomed, doomedEntry{entry: e, reason: reason})
			continue
		}
		if !ready {
			continue
		}

		lane := laneOf(e.task.Request())
		if q.limits != nil && !q.limits.Acquire(lane) {
			continue
		}
		e.ctx, e.cancel = context.WithCancel(context.Background())
		e.executing = true
		if err := e.task.Transition(call.StateRunning, nil); err != nil {
			e.executing = false
			e.cancel()
			e.ctx, e.cancel = nil, nil
			if q.limits != nil {
				q.limits.Release(lane)
			}
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			i--
			continue
		}

		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		if len(q.pending) > 0 {
			q.notify()
		}
		return e, doomed
	}
	return nil, doomed
}

// readyLocked reports whether every dependency of t has finished in an
// accepted state. A non-empty reason means one never will.
func (q *Queue) readyLocked(t *call.Task) (bool, string) {
	deps := t.Request().Dependencies
	for _, depID := range deps.IDs() {
		dep, ok := q.tasks[depID]
		if !ok {
			continue
		}
		state := dep.task.State()
		if !state.Terminal() {
			return false, ""
		}
		if !deps.Satisfied(depID, state) {
			return false, fmt.Sprintf("dependency %s finished %s", depID, state)
		}
	}
	return true, ""
}

// execute runs the callable of a RUNNING task, retrying failures until the
// request's retry budget is spent.
func (q *Queue) execute(e *entry) {
	t := e.task
	req := t.Request()
	ctx := call.WithTask(e.ctx, t)
	lane := laneOf(req)
	defer func() {
		e.cancel()
		if q.limits != nil {
			q.limits.Release(lane)
		}
		q.mu.Lock()
		e.executing = false
		canceled := e.cancelRequested
		q.mu.Unlock()
		if canceled {
			q.finish(context.Background(), e, call.StateCanceled, nil, nil)
		}
	}()

	t.FireStart(ctx)
	q.extensions.EmitCallStarted(ctx, t.Report())

	handler, ok := q.registry.Get(req.Name)
	if !ok {
		err := fmt.Errorf("%w: %q", conductor.ErrNoHandler, req.Name)
		q.finish(ctx, e, call.StateFailed, func(r *call.Report) { r.Error = err.Error() }, err)
		return
	}
	terminal := func(ctx context.Context) (any, error) { return handler(ctx, req) }

	for attempt := 1; ; attempt++ {
		if !t.Update(func(r *call.Report) { r.Attempts = attempt }) {
			return
		}

		result, err := q.mw(ctx, req, terminal)
		if t.State().Terminal() || q.cancelPending(e) {
			return
		}

		if err == nil {
			if req.Asynchronous {
				q.logger.Debug("asynchronous call awaiting completion",
					slog.String("call_id", req.ID.String()),
					slog.String("call_name", req.Name),
				)
				return
			}
			q.finish(ctx, e, call.StateSucceeded, func(r *call.Report) { r.Result = result }, nil)
			return
		}

		if attempt <= req.MaxRetries && ctx.Err() == nil {
			delay := q.backoff.Delay(attempt)
			q.extensions.EmitCallRetrying(ctx, t.Report(), attempt, delay)
			q.logger.Info("call scheduled for retry",
				slog.String("call_id", req.ID.String()),
				slog.String("call_name", req.Name),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", req.MaxRetries),
				slog.Duration("delay", delay),
			)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
				continue
			case <-ctx.Done():
				timer.Stop()
				err = ctx.Err()
			}
		}

		if q.cancelPending(e) {
			return
		}
		q.fail(ctx, e, err)
		return
	}
}

func (q *Queue) fail(ctx context.Context, e *entry, err error) {
	var traceback string
	var pe *middleware.PanicError
	if errors.As(err, &pe) {
		traceback = pe.Stack
	}
	q.logger.Debug("call failed",
		slog.String("call_id", e.task.ID().String()),
		slog.String("error", err.Error()),
	)
	q.finish(ctx, e, call.StateFailed, func(r *call.Report) {
		r.Error = err.Error()
		r.Traceback = traceback
	}, err)
}

// ──────────────────────────────────────────────────
// Retention
// ──────────────────────────────────────────────────

func (q *Queue) reapLoop(stopCh <-chan struct{}) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if n := q.Reap(now); n > 0 {
				q.logger.Debug("reaped finished calls", slog.Int("count", n))
			}
		}
	}
}

// Reap forgets tasks that finished more than the retention period before
// now and returns how many were removed.
func (q *Queue) Reap(now time.Time) int {
	if q.retention <= 0 {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for key, e := range q.tasks {
		if e.finishedAt.IsZero() || now.Sub(e.finishedAt) < q.retention {
			continue
		}
		delete(q.tasks, key)
		n++
	}
	return n
}
