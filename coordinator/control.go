package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
)

// FindCallReports returns the reports of every call known to the queue
// that matches crit, in submission order.
func (c *Coordinator) FindCallReports(_ context.Context, crit call.Criteria) []*call.Report {
	var out []*call.Report
	for _, task := range c.queue.AllTasks() {
		rep := task.Report()
		if crit.Match(task.Request(), rep) {
			out = append(out, rep)
		}
	}
	return out
}

// FindCallReportsBy is FindCallReports for untyped criteria, as received
// from query strings or message payloads. Unknown keys fail with
// conductor.ErrUnrecognizedSearchCriteria before anything is queried.
func (c *Coordinator) FindCallReportsBy(ctx context.Context, criteria map[string]any) ([]*call.Report, error) {
	crit, err := call.ParseCriteria(criteria)
	if err != nil {
		return nil, err
	}
	return c.FindCallReports(ctx, crit), nil
}

// CancelCall asks the queue to cancel callID and returns its answer. An
// unknown call fails with conductor.ErrCallNotFound.
func (c *Coordinator) CancelCall(ctx context.Context, callID id.CallID) (bool, error) {
	task := c.queue.Get(callID)
	if task == nil {
		return false, fmt.Errorf("%w: %s", conductor.ErrCallNotFound, callID)
	}
	return c.queue.Cancel(ctx, task)
}

// CancelMultipleCalls cancels every call of groupID. The result maps each
// call id to the queue's answer.
func (c *Coordinator) CancelMultipleCalls(ctx context.Context, groupID id.GroupID) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, task := range c.queue.AllTasks() {
		if task.Request().GroupID.String() != groupID.String() {
			continue
		}
		ok, err := c.queue.Cancel(ctx, task)
		if errors.Is(err, conductor.ErrCallNotFound) {
			// Reaped between listing and canceling.
			continue
		}
		if err != nil {
			return out, err
		}
		out[task.ID().String()] = ok
	}
	return out, nil
}

// ReportCallProgress attaches progress to the report of a running or
// waiting call. Unknown and finished calls are ignored.
func (c *Coordinator) ReportCallProgress(_ context.Context, callID id.CallID, progress any) {
	task := c.queue.Get(callID)
	if task == nil {
		c.logger.Debug("progress for unknown call ignored", slog.String("call_id", callID.String()))
		return
	}
	if !task.Update(func(r *call.Report) { r.Progress = progress }) {
		c.logger.Debug("progress for finished call ignored", slog.String("call_id", callID.String()))
	}
}

// CompleteCallSuccess finishes a running asynchronous call with result.
// Unknown and finished calls are ignored.
func (c *Coordinator) CompleteCallSuccess(ctx context.Context, callID id.CallID, result any) {
	if comp, ok := c.queue.(Completer); ok {
		if !comp.Complete(ctx, callID, result) {
			c.logger.Debug("completion for untracked call ignored", slog.String("call_id", callID.String()))
		}
		return
	}
	c.finish(ctx, callID, call.StateSucceeded, func(r *call.Report) { r.Result = result })
}

// CompleteCallFailure finishes a running asynchronous call with callErr
// and traceback. Unknown and finished calls are ignored.
func (c *Coordinator) CompleteCallFailure(ctx context.Context, callID id.CallID, callErr error, traceback string) {
	if comp, ok := c.queue.(Completer); ok {
		if !comp.Fail(ctx, callID, callErr, traceback) {
			c.logger.Debug("failure for untracked call ignored", slog.String("call_id", callID.String()))
		}
		return
	}
	c.finish(ctx, callID, call.StateFailed, func(r *call.Report) {
		if callErr != nil {
			r.Error = callErr.Error()
		}
		r.Traceback = traceback
	})
}

// finish completes a call on queues that do not implement Completer.
func (c *Coordinator) finish(ctx context.Context, callID id.CallID, state call.State, mutate func(*call.Report)) {
	task := c.queue.Get(callID)
	if task == nil || task.State() != call.StateRunning {
		c.logger.Debug("completion for untracked call ignored", slog.String("call_id", callID.String()))
		return
	}
	if err := task.Transition(state, mutate); err != nil {
		c.logger.Debug("completion raced with another transition",
			slog.String("call_id", callID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	task.FireDequeue(ctx)
}
