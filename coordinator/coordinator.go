// Package coordinator admits calls against the resource ledger and hands
// them to a task queue. A call whose resources conflict with in-flight
// calls is either postponed behind them or rejected outright, so calls
// that do run never touch the same resource in incompatible ways.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/ledger"
	"github.com/xraph/conductor/snapshot"
)

// Queue is the task queue the coordinator submits to.
type Queue interface {
	// Lock enters the submission critical section. The coordinator takes it
	// once per submission, never recursively.
	Lock()
	Unlock()

	Enqueue(ctx context.Context, t *call.Task) error
	// Dequeue removes t, canceling it if it has not finished.
	Dequeue(ctx context.Context, t *call.Task) error
	// Cancel reports whether the queue accepted the cancellation.
	Cancel(ctx context.Context, t *call.Task) (bool, error)
	// Get returns nil for an unknown call.
	Get(callID id.CallID) *call.Task
	AllTasks() []*call.Task
	IncompleteTasks() []*call.Task
}

// Runner is implemented by queues that own worker goroutines. The
// coordinator starts them after recovery and stops them on shutdown.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Completer is implemented by queues that finish asynchronous calls
// themselves. Both methods report whether the call was still running.
type Completer interface {
	Complete(ctx context.Context, callID id.CallID, result any) bool
	Fail(ctx context.Context, callID id.CallID, callErr error, traceback string) bool
}

// Store is the persistence the coordinator needs.
type Store interface {
	ledger.Store
	snapshot.Store
}

// Coordinator is the entry point for submitting and controlling calls.
type Coordinator struct {
	queue      Queue
	ledger     *ledger.Ledger
	snapshots  snapshot.Store
	codec      call.Codec
	extensions *ext.Registry
	logger     *slog.Logger

	enqueueHooks []call.Hook
	dequeueHooks []call.Hook

	waitPollInterval   time.Duration
	defaultSyncTimeout time.Duration
	shutdownTimeout    time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithExtensions sets the lifecycle extension registry.
func WithExtensions(r *ext.Registry) Option {
	return func(c *Coordinator) { c.extensions = r }
}

// WithTaskHooks appends hooks to every submitted task. They run after the
// coordinator's own hooks. Either may be nil.
func WithTaskHooks(onEnqueue, onDequeue call.Hook) Option {
	return func(c *Coordinator) {
		if onEnqueue != nil {
			c.enqueueHooks = append(c.enqueueHooks, onEnqueue)
		}
		if onDequeue != nil {
			c.dequeueHooks = append(c.dequeueHooks, onDequeue)
		}
	}
}

// WithCodec sets the codec for persisted queued calls.
func WithCodec(codec call.Codec) Option {
	return func(c *Coordinator) { c.codec = codec }
}

// WithWaitPollInterval sets how often synchronous submissions check
// whether their call has started.
func WithWaitPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.waitPollInterval = d
		}
	}
}

// WithConfig applies the coordinator-level fields of cfg.
func WithConfig(cfg conductor.Config) Option {
	return func(c *Coordinator) {
		if cfg.WaitPollInterval > 0 {
			c.waitPollInterval = cfg.WaitPollInterval
		}
		c.defaultSyncTimeout = cfg.DefaultSyncTimeout
		if cfg.ShutdownTimeout > 0 {
			c.shutdownTimeout = cfg.ShutdownTimeout
		}
		if cfg.SnapshotCodec != "" {
			c.codec = call.GetCodec(cfg.SnapshotCodec)
		}
	}
}

// New creates a Coordinator submitting to q and keeping claims and queued
// calls in s.
func New(q Queue, s Store, opts ...Option) *Coordinator {
	defaults := conductor.DefaultConfig()
	c := &Coordinator{
		queue:            q,
		ledger:           ledger.New(s),
		snapshots:        s,
		codec:            call.GetCodec(defaults.SnapshotCodec),
		logger:           slog.Default(),
		waitPollInterval: defaults.WaitPollInterval,
		shutdownTimeout:  defaults.ShutdownTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extensions == nil {
		c.extensions = ext.NewRegistry(c.logger)
	}
	return c
}

// Ledger returns the resource ledger the coordinator admits calls against.
func (c *Coordinator) Ledger() *ledger.Ledger { return c.ledger }

// Queue returns the task queue.
func (c *Coordinator) Queue() Queue { return c.queue }

// Extensions returns the extension registry.
func (c *Coordinator) Extensions() *ext.Registry { return c.extensions }

// ──────────────────────────────────────────────────
// Task hooks
// ──────────────────────────────────────────────────

// onStart drops the persisted snapshot once the call is dispatched.
func (c *Coordinator) onStart(ctx context.Context, req *call.Request, _ *call.Report) {
	if err := c.snapshots.DeleteQueuedCall(ctx, req.ID); err != nil {
		c.logger.Warn("failed to delete queued call snapshot",
			slog.String("call_id", req.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// onDequeue releases the call's claims. The queue fires it exactly once.
func (c *Coordinator) onDequeue(ctx context.Context, req *call.Request, rep *call.Report) {
	if err := c.ledger.Remove(ctx, req.ID); err != nil {
		c.logger.Warn("failed to remove resource claims",
			slog.String("call_id", req.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	if rep.StartedAt == nil {
		c.onStart(ctx, req, rep)
	}
}
