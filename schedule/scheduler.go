package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
)

// SubmitFunc hands a fired call to the coordinator. The coordinator's
// ExecuteCallAsynchronously satisfies it.
type SubmitFunc func(ctx context.Context, req *call.Request) (*call.Report, error)

// Emitter emits schedule lifecycle events.
// ext.Registry satisfies this interface via EmitScheduleFired.
type Emitter interface {
	EmitScheduleFired(ctx context.Context, entryName string, rep *call.Report)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) SchedulerOption {
	return func(s *Scheduler) { s.emitter = e }
}

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// specParser supports standard 5-field cron and descriptors like "@every 30s".
var specParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSpec parses a cron expression.
func ParseSpec(spec string) (cronlib.Schedule, error) {
	return specParser.Parse(spec)
}

// Scheduler submits due entries on a tick loop.
type Scheduler struct {
	store   Store
	submit  SubmitFunc
	emitter Emitter
	logger  *slog.Logger

	tickInterval time.Duration

	parsedMu sync.RWMutex
	parsed   map[string]cronlib.Schedule

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, submit SubmitFunc, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:        store,
		submit:       submit,
		logger:       slog.Default(),
		tickInterval: time.Second,
		parsed:       make(map[string]cronlib.Schedule),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates e's spec, computes its first run and persists it.
func (s *Scheduler) Register(ctx context.Context, e *Entry) error {
	sched, err := s.getOrParse(e.Spec)
	if err != nil {
		return fmt.Errorf("schedule %q: parse spec %q: %w", e.Name, e.Spec, err)
	}
	if e.ID.IsNil() {
		e.ID = id.NewScheduleID()
	}
	next := sched.Next(time.Now().UTC())
	e.NextRunAt = &next
	return s.store.RegisterSchedule(ctx, e)
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("call scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop signals the scheduler to stop and waits for the tick loop to exit.
func (s *Scheduler) Stop(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("call scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(context.Background(), time.Now().UTC())
		}
	}
}

// Tick fires every enabled entry due at now. Exported so callers can drive
// the scheduler from their own clock.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	entries, err := s.store.ListSchedules(ctx)
	if err != nil {
		s.logger.Error("list schedules error", slog.String("error", err.Error()))
		return
	}

	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		if e.NextRunAt == nil || e.NextRunAt.After(now) {
			continue
		}
		s.fire(ctx, e, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, e *Entry, now time.Time) {
	rep, err := s.submit(ctx, e.Request())
	if err != nil {
		s.logger.Error("scheduled call submit error",
			slog.String("schedule", e.Name),
			slog.String("call_name", e.CallName),
			slog.String("error", err.Error()),
		)
	}

	e.LastRunAt = &now
	sched, parseErr := s.getOrParse(e.Spec)
	if parseErr != nil {
		s.logger.Error("parse schedule spec error",
			slog.String("schedule", e.Name),
			slog.String("spec", e.Spec),
			slog.String("error", parseErr.Error()),
		)
		e.Enabled = false
	} else {
		next := sched.Next(now)
		e.NextRunAt = &next
	}
	e.UpdatedAt = now
	if updateErr := s.store.UpdateSchedule(ctx, e); updateErr != nil {
		s.logger.Error("update schedule error",
			slog.String("schedule_id", e.ID.String()),
			slog.String("error", updateErr.Error()),
		)
	}

	if err != nil {
		return
	}
	if s.emitter != nil {
		s.emitter.EmitScheduleFired(ctx, e.Name, rep)
	}
	s.logger.Info("schedule fired",
		slog.String("schedule", e.Name),
		slog.String("call_id", rep.CallID.String()),
		slog.String("response", string(rep.Response)),
	)
}

func (s *Scheduler) getOrParse(spec string) (cronlib.Schedule, error) {
	s.parsedMu.RLock()
	sched, ok := s.parsed[spec]
	s.parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}

	s.parsedMu.Lock()
	s.parsed[spec] = sched
	s.parsedMu.Unlock()
	return sched, nil
}
