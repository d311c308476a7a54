package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/store/memory"
)

type recorder struct {
	mu    sync.Mutex
	reqs  []*call.Request
	fired []string
	err   error
}

func (r *recorder) submit(_ context.Context, req *call.Request) (*call.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.reqs = append(r.reqs, req)
	return call.NewReport(req), nil
}

func (r *recorder) EmitScheduleFired(_ context.Context, name string, _ *call.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, name)
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 3 * * 1", false},
		{"@every 30s", false},
		{"@hourly", false},
		{"not a spec", true},
		{"* * * * * *", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := schedule.ParseSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSpec(%q) err = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_RegisterComputesNextRun(t *testing.T) {
	s := memory.New()
	rec := &recorder{}
	sched := schedule.NewScheduler(s, rec.submit)
	ctx := context.Background()

	e := schedule.NewEntry("nightly-sync", "0 3 * * *", call.NewRequest("sync_repo"))
	if err := sched.Register(ctx, e); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if e.NextRunAt == nil || !e.NextRunAt.After(time.Now()) {
		t.Errorf("NextRunAt = %v, want a future time", e.NextRunAt)
	}

	dup := schedule.NewEntry("nightly-sync", "0 4 * * *", call.NewRequest("sync_repo"))
	if err := sched.Register(ctx, dup); !errors.Is(err, conductor.ErrDuplicateSchedule) {
		t.Errorf("duplicate Register err = %v, want ErrDuplicateSchedule", err)
	}

	bad := schedule.NewEntry("broken", "every tuesday", call.NewRequest("sync_repo"))
	if err := sched.Register(ctx, bad); err == nil {
		t.Error("expected parse error for invalid spec")
	}
}

func TestScheduler_TickFiresDueEntries(t *testing.T) {
	s := memory.New()
	rec := &recorder{}
	sched := schedule.NewScheduler(s, rec.submit, schedule.WithEmitter(rec))
	ctx := context.Background()

	req := call.NewRequest("sync_repo",
		call.WithResource(resource.Update, "repo", "r1"),
		call.WithKwarg("full", true),
		call.WithTags("scheduled"),
		call.WithQueue("bulk"),
	)
	e := schedule.NewEntry("every-minute", "@every 1m", req)
	if err := sched.Register(ctx, e); err != nil {
		t.Fatal(err)
	}

	sched.Tick(ctx, time.Now().UTC())
	if len(rec.reqs) != 0 {
		t.Fatalf("entry fired before it was due")
	}

	now := time.Now().UTC().Add(2 * time.Minute)
	sched.Tick(ctx, now)
	if len(rec.reqs) != 1 {
		t.Fatalf("fired %d calls, want 1", len(rec.reqs))
	}

	got := rec.reqs[0]
	if got.ScheduleID.String() != e.ID.String() {
		t.Errorf("ScheduleID = %s, want %s", got.ScheduleID, e.ID)
	}
	if got.ID.String() == req.ID.String() {
		t.Error("each firing should get a fresh call id")
	}
	if got.Name != "sync_repo" || got.Queue != "bulk" || got.Resources.Len() != 1 {
		t.Errorf("request not built from entry: %+v", got)
	}
	if len(rec.fired) != 1 || rec.fired[0] != "every-minute" {
		t.Errorf("fired events = %v", rec.fired)
	}

	stored, err := s.GetSchedule(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastRunAt == nil || !stored.LastRunAt.Equal(now) {
		t.Errorf("LastRunAt = %v, want %v", stored.LastRunAt, now)
	}
	if stored.NextRunAt == nil || !stored.NextRunAt.After(now) {
		t.Errorf("NextRunAt = %v, want after %v", stored.NextRunAt, now)
	}
}

func TestScheduler_SkipsDisabledEntries(t *testing.T) {
	s := memory.New()
	rec := &recorder{}
	sched := schedule.NewScheduler(s, rec.submit)
	ctx := context.Background()

	e := schedule.NewEntry("paused", "@every 1m", call.NewRequest("sync_repo"))
	e.Enabled = false
	if err := sched.Register(ctx, e); err != nil {
		t.Fatal(err)
	}

	sched.Tick(ctx, time.Now().Add(time.Hour))
	if len(rec.reqs) != 0 {
		t.Errorf("disabled entry fired %d times", len(rec.reqs))
	}
}

func TestScheduler_SubmitErrorStillAdvances(t *testing.T) {
	s := memory.New()
	rec := &recorder{err: errors.New("queue down")}
	sched := schedule.NewScheduler(s, rec.submit, schedule.WithEmitter(rec))
	ctx := context.Background()

	e := schedule.NewEntry("flaky", "@every 1m", call.NewRequest("sync_repo"))
	if err := sched.Register(ctx, e); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Add(2 * time.Minute)
	sched.Tick(ctx, now)

	if len(rec.fired) != 0 {
		t.Error("failed submission must not emit a fired event")
	}
	stored, _ := s.GetSchedule(ctx, e.ID)
	if stored.NextRunAt == nil || !stored.NextRunAt.After(now) {
		t.Errorf("NextRunAt = %v, want after %v", stored.NextRunAt, now)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := memory.New()
	rec := &recorder{}
	sched := schedule.NewScheduler(s, rec.submit, schedule.WithTickInterval(10*time.Millisecond))
	ctx := context.Background()

	e := schedule.NewEntry("fast", "@every 1s", call.NewRequest("sync_repo"))
	if err := sched.Register(ctx, e); err != nil {
		t.Fatal(err)
	}
	past := time.Now().UTC().Add(-time.Second)
	e.NextRunAt = &past
	if err := s.UpdateSchedule(ctx, e); err != nil {
		t.Fatal(err)
	}

	if err := sched.Start(ctx); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec.mu.Lock()
		n := len(rec.reqs)
		rec.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := sched.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sched.Stop(ctx); err != nil {
		t.Fatalf("double Stop: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.reqs) == 0 {
		t.Error("scheduler loop never fired the due entry")
	}
}
