package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
)

// Start recovers from a previous process and then starts the queue if it
// is a Runner. It must run once, before any submission.
//
// Claims left in the ledger are stale because nothing is running yet, so
// the ledger is cleared. Persisted queued calls are resubmitted in their
// original enqueue order: ungrouped calls one by one, grouped calls
// together under their original group id. Undecodable snapshots are
// dropped, and a group with a dependency cycle is skipped with a warning.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.ledger.Clear(ctx); err != nil {
		return err
	}

	queued, err := c.snapshots.ListQueuedCalls(ctx)
	if err != nil {
		return err
	}
	if err := c.snapshots.ClearQueuedCalls(ctx); err != nil {
		return err
	}

	var (
		order  []string
		groups = make(map[string][]*call.Request)
		single []*call.Request
		plan   []func() error
	)
	dropped := 0
	for _, qc := range queued {
		req, err := qc.Request()
		if err != nil {
			dropped++
			c.logger.Debug("dropping undecodable queued call",
				slog.String("call_id", qc.CallID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if req.GroupID.IsNil() {
			single = append(single, req)
			plan = append(plan, func() error {
				_, err := c.ExecuteCallAsynchronously(ctx, req)
				return err
			})
			continue
		}
		key := req.GroupID.String()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
			groupID := req.GroupID
			plan = append(plan, func() error {
				_, err := c.submitBatch(ctx, groups[key], groupID)
				return err
			})
		}
		groups[key] = append(groups[key], req)
	}

	for _, step := range plan {
		err := step()
		if errors.Is(err, conductor.ErrCycleDetected) {
			c.logger.Warn("skipping recovered call group", slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return err
		}
	}

	c.logger.Info("coordinator recovered queued calls",
		slog.Int("calls", len(single)),
		slog.Int("groups", len(order)),
		slog.Int("dropped", dropped),
	)

	if r, ok := c.queue.(Runner); ok {
		return r.Start(ctx)
	}
	return nil
}

// Stop stops the queue if it is a Runner, giving running calls up to the
// configured shutdown timeout, then notifies shutdown extensions.
func (c *Coordinator) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.shutdownTimeout)
	defer cancel()

	var err error
	if r, ok := c.queue.(Runner); ok {
		err = r.Stop(ctx)
	}
	c.extensions.EmitShutdown(ctx)
	return err
}

// Submit adapts ExecuteCallAsynchronously to schedule.SubmitFunc.
func (c *Coordinator) Submit(ctx context.Context, req *call.Request) (*call.Report, error) {
	return c.ExecuteCallAsynchronously(ctx, req)
}

// Incomplete returns the reports of calls that have not finished.
func (c *Coordinator) Incomplete() []*call.Report {
	tasks := c.queue.IncompleteTasks()
	out := make([]*call.Report, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Report())
	}
	return out
}

// Report returns the report of callID, or conductor.ErrCallNotFound.
func (c *Coordinator) Report(callID id.CallID) (*call.Report, error) {
	task := c.queue.Get(callID)
	if task == nil {
		return nil, conductor.ErrCallNotFound
	}
	return task.Report(), nil
}
