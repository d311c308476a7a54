package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/snapshot"
	"github.com/xraph/conductor/store"
	"github.com/xraph/conductor/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Migrate", func() error { return s.Migrate(ctx) }},
		{"Ping", func() error { return s.Ping(ctx) }},
		{"Close", func() error { return s.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != nil {
				t.Fatalf("%s returned error: %v", tt.name, err)
			}
		})
	}
}

// ──────────────────────────────────────────────────
// Ledger Store tests
// ──────────────────────────────────────────────────

func claim(callID id.CallID, typ, rid string, op resource.Operation) *resource.Claim {
	return &resource.Claim{CallID: callID, ResourceType: typ, ResourceID: rid, Operation: op}
}

func TestClaims_FindByKeys(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	c1, c2 := id.NewCallID(), id.NewCallID()
	if err := s.InsertClaims(ctx, []*resource.Claim{
		claim(c1, "repo", "r1", resource.Read),
		claim(c2, "repo", "r2", resource.Update),
		claim(c2, "unit", "u1", resource.Delete),
	}); err != nil {
		t.Fatalf("InsertClaims: %v", err)
	}

	got, err := s.FindClaims(ctx, []resource.Key{{Type: "repo", ID: "r1"}, {Type: "unit", ID: "u1"}})
	if err != nil {
		t.Fatalf("FindClaims: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ResourceID != "r1" || got[1].ResourceID != "u1" {
		t.Errorf("order = %s, %s; want insertion order", got[0].ResourceID, got[1].ResourceID)
	}

	none, err := s.FindClaims(ctx, []resource.Key{{Type: "repo", ID: "missing"}})
	if err != nil || len(none) != 0 {
		t.Fatalf("FindClaims(missing) = %v, %v", none, err)
	}
}

func TestClaims_RemoveIdempotent(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	c1, c2 := id.NewCallID(), id.NewCallID()
	_ = s.InsertClaims(ctx, []*resource.Claim{
		claim(c1, "repo", "r1", resource.Read),
		claim(c2, "repo", "r1", resource.Read),
	})

	for i := 0; i < 2; i++ {
		if err := s.RemoveClaims(ctx, c1); err != nil {
			t.Fatalf("RemoveClaims #%d: %v", i, err)
		}
	}

	left, _ := s.ListClaims(ctx, c1)
	if len(left) != 0 {
		t.Fatalf("claims left for removed call: %d", len(left))
	}
	other, _ := s.ListClaims(ctx, c2)
	if len(other) != 1 {
		t.Fatalf("claims for other call = %d, want 1", len(other))
	}

	if err := s.ClearClaims(ctx); err != nil {
		t.Fatalf("ClearClaims: %v", err)
	}
	all, _ := s.FindClaims(ctx, []resource.Key{{Type: "repo", ID: "r1"}})
	if len(all) != 0 {
		t.Fatalf("claims after clear = %d", len(all))
	}
}

// ──────────────────────────────────────────────────
// Snapshot Store tests
// ──────────────────────────────────────────────────

func TestQueuedCalls_Ordered(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	base := time.Now().UTC()
	var want []string
	for i := 0; i < 3; i++ {
		qc, err := snapshot.New(call.NewRequest("noop"), &call.JSONCodec{})
		if err != nil {
			t.Fatalf("snapshot.New: %v", err)
		}
		qc.EnqueuedAt = base.Add(time.Duration(2-i) * time.Second)
		want = append([]string{qc.CallID.String()}, want...)
		if err := s.SaveQueuedCall(ctx, qc); err != nil {
			t.Fatalf("SaveQueuedCall: %v", err)
		}
	}

	got, err := s.ListQueuedCalls(ctx)
	if err != nil {
		t.Fatalf("ListQueuedCalls: %v", err)
	}
	for i := range want {
		if got[i].CallID.String() != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, got[i].CallID, want[i])
		}
	}

	if err := s.DeleteQueuedCall(ctx, got[0].CallID); err != nil {
		t.Fatalf("DeleteQueuedCall: %v", err)
	}
	if err := s.DeleteQueuedCall(ctx, got[0].CallID); err != nil {
		t.Fatalf("second DeleteQueuedCall: %v", err)
	}
	if err := s.ClearQueuedCalls(ctx); err != nil {
		t.Fatalf("ClearQueuedCalls: %v", err)
	}
	if rest, _ := s.ListQueuedCalls(ctx); len(rest) != 0 {
		t.Fatalf("entries after clear = %d", len(rest))
	}
}

// ──────────────────────────────────────────────────
// Schedule Store tests
// ──────────────────────────────────────────────────

func TestSchedules_CRUD(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	e := schedule.NewEntry("nightly-sync", "@daily", call.NewRequest("sync_repo"))
	if err := s.RegisterSchedule(ctx, e); err != nil {
		t.Fatalf("RegisterSchedule: %v", err)
	}

	dup := schedule.NewEntry("nightly-sync", "@hourly", call.NewRequest("sync_repo"))
	if err := s.RegisterSchedule(ctx, dup); !errors.Is(err, conductor.ErrDuplicateSchedule) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateSchedule", err)
	}

	e.Enabled = false
	if err := s.UpdateSchedule(ctx, e); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	got, err := s.GetSchedule(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Enabled {
		t.Error("expected disabled entry")
	}

	if err := s.DeleteSchedule(ctx, e.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if _, err := s.GetSchedule(ctx, e.ID); !errors.Is(err, conductor.ErrScheduleNotFound) {
		t.Fatalf("err = %v, want ErrScheduleNotFound", err)
	}
	if err := s.UpdateSchedule(ctx, e); !errors.Is(err, conductor.ErrScheduleNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
}
