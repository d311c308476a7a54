package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/dag"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/snapshot"
)

// ExecuteCall submits req. A synchronous call that is accepted blocks
// until it starts running or finishes, bounded by the configured default
// synchronous timeout. Postponed, rejected and asynchronous calls return
// immediately.
func (c *Coordinator) ExecuteCall(ctx context.Context, req *call.Request) (*call.Report, error) {
	task, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	rep := task.Report()
	if req.Asynchronous || rep.Response != resource.Accepted {
		return rep, nil
	}
	return c.wait(ctx, task, c.defaultSyncTimeout)
}

// ExecuteCallSynchronously submits req and waits up to timeout for it to
// start running or finish, whatever its conflict response. A zero timeout
// falls back to the configured default; if that is zero too the wait is
// unbounded. On timeout the call is removed from the queue and the error
// wraps conductor.ErrOperationTimedOut. Asynchronous requests fail with
// conductor.ErrAsynchronousExecution before anything is submitted.
func (c *Coordinator) ExecuteCallSynchronously(ctx context.Context, req *call.Request, timeout time.Duration) (*call.Report, error) {
	if req.Asynchronous {
		return nil, fmt.Errorf("%w: call %s (%s)", conductor.ErrAsynchronousExecution, req.ID, req.Name)
	}
	task, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if task.Report().Response == resource.Rejected {
		return task.Report(), nil
	}
	if timeout <= 0 {
		timeout = c.defaultSyncTimeout
	}
	return c.wait(ctx, task, timeout)
}

// ExecuteCallAsynchronously submits req and returns without waiting.
func (c *Coordinator) ExecuteCallAsynchronously(ctx context.Context, req *call.Request) (*call.Report, error) {
	task, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return task.Report(), nil
}

// ExecuteMultipleCalls submits reqs as one group under a fresh group id.
// If any request is rejected, every request is reported rejected and none
// is enqueued. Otherwise the requests are enqueued in dependency order,
// submission order breaking ties. A dependency cycle fails the whole batch
// with an error wrapping conductor.ErrCycleDetected. Reports are returned
// in submission order.
func (c *Coordinator) ExecuteMultipleCalls(ctx context.Context, reqs []*call.Request) ([]*call.Report, error) {
	return c.submitBatch(ctx, reqs, id.NewGroupID())
}

// submit runs the conflict-check-then-register sequence for one call.
func (c *Coordinator) submit(ctx context.Context, req *call.Request) (*call.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	// A call depending on itself would wait forever.
	if _, err := dag.Sort([]*call.Request{req}); err != nil {
		return nil, err
	}

	c.queue.Lock()
	defer c.queue.Unlock()

	task, err := c.admit(ctx, req)
	if err != nil {
		return nil, err
	}
	rep := task.Report()
	c.extensions.EmitCallSubmitted(ctx, rep)
	if rep.Response == resource.Rejected {
		c.logger.Info("call rejected",
			slog.String("call_id", req.ID.String()),
			slog.String("call_name", req.Name),
			slog.Int("reasons", len(rep.Reasons)),
		)
		return task, nil
	}

	if err := c.enqueue(ctx, task); err != nil {
		c.release(ctx, req.ID)
		return nil, err
	}
	return task, nil
}

// submitBatch checks every request against the ledger as it stood before
// the batch, so members never conflict with each other. Ordering between
// members comes from their declared dependencies only.
func (c *Coordinator) submitBatch(ctx context.Context, reqs []*call.Request, groupID id.GroupID) ([]*call.Report, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	for _, req := range reqs {
		req.GroupID = groupID
		if err := req.Validate(); err != nil {
			return nil, err
		}
	}

	c.queue.Lock()
	defer c.queue.Unlock()

	tasks := make([]*call.Task, len(reqs))
	byID := make(map[string]*call.Task, len(reqs))
	rejected := false
	for i, req := range reqs {
		task, err := c.check(ctx, req)
		if err != nil {
			return nil, err
		}
		tasks[i] = task
		byID[req.ID.String()] = task
		if task.Report().Response == resource.Rejected {
			rejected = true
		}
	}

	if rejected {
		reports := make([]*call.Report, len(tasks))
		for i, task := range tasks {
			task.Update(func(r *call.Report) { r.Response = resource.Rejected })
			reports[i] = task.Report()
			c.extensions.EmitCallSubmitted(ctx, reports[i])
		}
		c.logger.Info("call group rejected",
			slog.String("group_id", groupID.String()),
			slog.Int("calls", len(reqs)),
		)
		return reports, nil
	}

	ordered, err := dag.Sort(reqs)
	if err != nil {
		return nil, err
	}

	var claims []*resource.Claim
	for _, req := range ordered {
		claims = append(claims, req.Resources.Flatten(req.ID)...)
	}
	if err := c.ledger.Insert(ctx, claims); err != nil {
		return nil, err
	}

	for i, req := range ordered {
		task := byID[req.ID.String()]
		c.extensions.EmitCallSubmitted(ctx, task.Report())
		if err := c.enqueue(ctx, task); err != nil {
			for _, done := range ordered[:i] {
				_ = c.queue.Dequeue(ctx, byID[done.ID.String()])
			}
			for _, r := range ordered {
				c.release(ctx, r.ID)
			}
			return nil, err
		}
	}

	reports := make([]*call.Report, len(tasks))
	for i, task := range tasks {
		reports[i] = task.Report()
	}
	return reports, nil
}

// admit checks req against the ledger and, unless it is rejected, records
// its claims.
func (c *Coordinator) admit(ctx context.Context, req *call.Request) (*call.Task, error) {
	task, err := c.check(ctx, req)
	if err != nil {
		return nil, err
	}
	if task.Report().Response == resource.Rejected {
		return task, nil
	}
	if err := c.ledger.Insert(ctx, req.Resources.Flatten(req.ID)); err != nil {
		return nil, err
	}
	return task, nil
}

// check computes req's conflict response without touching the ledger.
// Postponed calls gain a dependency on every blocker.
func (c *Coordinator) check(ctx context.Context, req *call.Request) (*call.Task, error) {
	conflicts, err := c.ledger.FindConflicts(ctx, req.Resources)
	if err != nil {
		return nil, err
	}

	if req.Dependencies == nil {
		req.Dependencies = make(call.Dependencies)
	}
	rep := call.NewReport(req)
	rep.Response = conflicts.Response
	rep.Reasons = conflicts.Reasons

	if conflicts.Response == resource.Postponed {
		for _, blocker := range conflicts.Blockers {
			req.Dependencies.Add(blocker)
		}
		c.logger.Debug("call postponed",
			slog.String("call_id", req.ID.String()),
			slog.Int("blockers", len(conflicts.Blockers)),
		)
	}
	return call.NewTask(req, rep), nil
}

// enqueue installs the lifecycle hooks, persists the snapshot and hands
// the task to the queue.
func (c *Coordinator) enqueue(ctx context.Context, task *call.Task) error {
	req := task.Request()

	task.OnStart(c.onStart)
	task.OnDequeue(c.onDequeue)
	task.OnEnqueue(c.enqueueHooks...)
	task.OnDequeue(c.dequeueHooks...)

	qc, err := snapshot.New(req, c.codec)
	if err != nil {
		return err
	}
	if err := c.snapshots.SaveQueuedCall(ctx, qc); err != nil {
		return err
	}
	if err := c.queue.Enqueue(ctx, task); err != nil {
		_ = c.snapshots.DeleteQueuedCall(ctx, req.ID)
		return err
	}
	return nil
}

// release undoes the ledger and snapshot side effects of an admitted call
// that never reached the queue.
func (c *Coordinator) release(ctx context.Context, callID id.CallID) {
	ctx = context.WithoutCancel(ctx)
	if err := c.ledger.Remove(ctx, callID); err != nil {
		c.logger.Warn("failed to roll back resource claims",
			slog.String("call_id", callID.String()),
			slog.String("error", err.Error()),
		)
	}
	_ = c.snapshots.DeleteQueuedCall(ctx, callID)
}

// wait polls until task is running or finished. On timeout, or when ctx
// ends first, the task is dequeued before the error is returned.
func (c *Coordinator) wait(ctx context.Context, task *call.Task, timeout time.Duration) (*call.Report, error) {
	ticker := time.NewTicker(c.waitPollInterval)
	defer ticker.Stop()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if task.State().Started() {
			return task.Report(), nil
		}

		var cause error
		select {
		case <-ticker.C:
			continue
		case <-expired:
			cause = fmt.Errorf("%w: call %s did not start within %s",
				conductor.ErrOperationTimedOut, task.ID(), timeout)
		case <-ctx.Done():
			cause = ctx.Err()
		}

		if task.State().Started() {
			return task.Report(), nil
		}
		if err := c.queue.Dequeue(context.WithoutCancel(ctx), task); err != nil {
			c.logger.Warn("failed to dequeue timed out call",
				slog.String("call_id", task.ID().String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, cause
	}
}
