// Package storetest is a conformance suite shared by every store backend.
// Backends call Run from their own tests with a constructor that returns
// a freshly migrated, empty store.
package storetest

import (
	"context"
	"encoding/json"
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
)

// Factory returns an empty, migrated store. It registers its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the whole suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
	t.Run("MigrateIdempotent", func(t *testing.T) {
		s := newStore(t)
		if err := s.Migrate(context.Background()); err != nil {
			t.Fatalf("second Migrate: %v", err)
		}
	})
	t.Run("Claims", func(t *testing.T) { testClaims(t, newStore(t)) })
	t.Run("ClaimsOrder", func(t *testing.T) { testClaimsOrder(t, newStore(t)) })
	t.Run("QueuedCalls", func(t *testing.T) { testQueuedCalls(t, newStore(t)) })
	t.Run("Schedules", func(t *testing.T) { testSchedules(t, newStore(t)) })
}

// Claim is a shorthand constructor for a resource claim.
func Claim(callID id.CallID, typ, rid string, op resource.Operation) *resource.Claim {
	return &resource.Claim{CallID: callID, ResourceType: typ, ResourceID: rid, Operation: op}
}

func testClaims(t *testing.T, s store.Store) {
	ctx := context.Background()
	c1, c2 := id.NewCallID(), id.NewCallID()

	if err := s.InsertClaims(ctx, []*resource.Claim{
		Claim(c1, "repository", "r1", resource.Read),
		Claim(c1, "content_unit", "cu1", resource.Read),
		Claim(c2, "repository", "r2", resource.Update),
	}); err != nil {
		t.Fatalf("InsertClaims: %v", err)
	}

	found, err := s.FindClaims(ctx, []resource.Key{
		{Type: "repository", ID: "r1"},
		{Type: "repository", ID: "r2"},
		{Type: "repository", ID: "missing"},
	})
	if err != nil {
		t.Fatalf("FindClaims: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("FindClaims returned %d claims, want 2", len(found))
	}

	none, err := s.FindClaims(ctx, nil)
	if err != nil {
		t.Fatalf("FindClaims(nil): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindClaims(nil) returned %d claims, want 0", len(none))
	}

	held, err := s.ListClaims(ctx, c1)
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(held) != 2 {
		t.Fatalf("ListClaims returned %d claims, want 2", len(held))
	}
	for _, c := range held {
		if c.CallID.String() != c1.String() {
			t.Errorf("claim owner = %s, want %s", c.CallID, c1)
		}
		if c.Operation != resource.Read {
			t.Errorf("claim operation = %q, want %q", c.Operation, resource.Read)
		}
	}

	if err := s.RemoveClaims(ctx, c1); err != nil {
		t.Fatalf("RemoveClaims: %v", err)
	}
	if err := s.RemoveClaims(ctx, c1); err != nil {
		t.Fatalf("second RemoveClaims: %v", err)
	}
	held, err = s.ListClaims(ctx, c1)
	if err != nil {
		t.Fatalf("ListClaims after remove: %v", err)
	}
	if len(held) != 0 {
		t.Errorf("ListClaims after remove returned %d claims, want 0", len(held))
	}

	if err := s.ClearClaims(ctx); err != nil {
		t.Fatalf("ClearClaims: %v", err)
	}
	found, err = s.FindClaims(ctx, []resource.Key{{Type: "repository", ID: "r2"}})
	if err != nil {
		t.Fatalf("FindClaims after clear: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("FindClaims after clear returned %d claims, want 0", len(found))
	}
}

func testClaimsOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	calls := []id.CallID{id.NewCallID(), id.NewCallID(), id.NewCallID()}

	for _, c := range calls {
		if err := s.InsertClaims(ctx, []*resource.Claim{Claim(c, "repository", "shared", resource.Read)}); err != nil {
			t.Fatalf("InsertClaims: %v", err)
		}
	}

	found, err := s.FindClaims(ctx, []resource.Key{{Type: "repository", ID: "shared"}})
	if err != nil {
		t.Fatalf("FindClaims: %v", err)
	}
	if len(found) != len(calls) {
		t.Fatalf("FindClaims returned %d claims, want %d", len(found), len(calls))
	}
	for i, c := range found {
		if c.CallID.String() != calls[i].String() {
			t.Errorf("claim %d owner = %s, want %s", i, c.CallID, calls[i])
		}
	}
}

func testQueuedCalls(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	groupID := id.NewGroupID()

	var ids []id.CallID
	for i := range 3 {
		req := call.NewRequest("sync", call.WithResource(resource.Update, "repository", "r1"))
		if i == 1 {
			req.GroupID = groupID
		}
		qc, err := snapshot.New(req, &call.JSONCodec{})
		if err != nil {
			t.Fatalf("snapshot.New: %v", err)
		}
		// Saved out of order; listing must sort by enqueue time.
		qc.EnqueuedAt = base.Add(time.Duration(2-i) * time.Second)
		if err := s.SaveQueuedCall(ctx, qc); err != nil {
			t.Fatalf("SaveQueuedCall: %v", err)
		}
		ids = append(ids, req.ID)
	}

	list, err := s.ListQueuedCalls(ctx)
	if err != nil {
		t.Fatalf("ListQueuedCalls: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListQueuedCalls returned %d entries, want 3", len(list))
	}
	for i, want := range []id.CallID{ids[2], ids[1], ids[0]} {
		if list[i].CallID.String() != want.String() {
			t.Errorf("entry %d = %s, want %s", i, list[i].CallID, want)
		}
	}
	if list[1].GroupID.String() != groupID.String() {
		t.Errorf("group id = %q, want %q", list[1].GroupID, groupID)
	}
	if !list[0].GroupID.IsNil() {
		t.Errorf("ungrouped entry has group id %q", list[0].GroupID)
	}
	req, err := list[0].Request()
	if err != nil {
		t.Fatalf("decode descriptor: %v", err)
	}
	if req.Name != "sync" {
		t.Errorf("decoded name = %q, want %q", req.Name, "sync")
	}

	// Saving again replaces the entry.
	list[0].EnqueuedAt = base.Add(time.Hour)
	if err := s.SaveQueuedCall(ctx, list[0]); err != nil {
		t.Fatalf("SaveQueuedCall replace: %v", err)
	}
	if err := s.DeleteQueuedCall(ctx, ids[1]); err != nil {
		t.Fatalf("DeleteQueuedCall: %v", err)
	}
	if err := s.DeleteQueuedCall(ctx, id.NewCallID()); err != nil {
		t.Fatalf("DeleteQueuedCall missing: %v", err)
	}
	list, err = s.ListQueuedCalls(ctx)
	if err != nil {
		t.Fatalf("ListQueuedCalls: %v", err)
	}
	if len(list) != 2 || list[1].CallID.String() != ids[2].String() {
		t.Fatalf("after replace/delete got %d entries, last should be %s", len(list), ids[2])
	}

	if err := s.ClearQueuedCalls(ctx); err != nil {
		t.Fatalf("ClearQueuedCalls: %v", err)
	}
	list, err = s.ListQueuedCalls(ctx)
	if err != nil {
		t.Fatalf("ListQueuedCalls after clear: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListQueuedCalls after clear returned %d entries", len(list))
	}
}

func testSchedules(t *testing.T, s store.Store) {
	ctx := context.Background()

	req := call.NewRequest("cleanup",
		call.WithResource(resource.Delete, "artifact", "orphans"),
		call.WithTags("nightly"),
	)
	req.Kwargs = map[string]json.RawMessage{"older_than": json.RawMessage(`"24h"`)}
	e := schedule.NewEntry("nightly-cleanup", "0 3 * * *", req)
	e.CreatedAt = e.CreatedAt.Truncate(time.Millisecond)
	e.UpdatedAt = e.CreatedAt

	if err := s.RegisterSchedule(ctx, e); err != nil {
		t.Fatalf("RegisterSchedule: %v", err)
	}
	dup := schedule.NewEntry("nightly-cleanup", "0 4 * * *", req)
	if err := s.RegisterSchedule(ctx, dup); !errors.Is(err, conductor.ErrDuplicateSchedule) {
		t.Fatalf("duplicate RegisterSchedule error = %v, want ErrDuplicateSchedule", err)
	}

	got, err := s.GetSchedule(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.Name != e.Name || got.Spec != e.Spec || got.CallName != "cleanup" {
		t.Errorf("GetSchedule = %+v", got)
	}
	if ids := got.Resources[resource.Delete]["artifact"]; len(ids) != 1 || ids[0] != "orphans" {
		t.Errorf("resources = %v", got.Resources)
	}
	if string(got.Kwargs["older_than"]) != `"24h"` {
		t.Errorf("kwargs = %v", got.Kwargs)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "nightly" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.Enabled {
		t.Error("entry should be enabled")
	}

	next := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	got.Enabled = false
	got.NextRunAt = &next
	if err := s.UpdateSchedule(ctx, got); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	list, err := s.ListSchedules(ctx)
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListSchedules returned %d entries, want 1", len(list))
	}
	if list[0].Enabled {
		t.Error("update did not persist Enabled=false")
	}
	if list[0].NextRunAt == nil || !list[0].NextRunAt.Equal(next) {
		t.Errorf("NextRunAt = %v, want %v", list[0].NextRunAt, next)
	}

	missing := schedule.NewEntry("missing", "@hourly", req)
	if err := s.UpdateSchedule(ctx, missing); !errors.Is(err, conductor.ErrScheduleNotFound) {
		t.Errorf("UpdateSchedule missing error = %v, want ErrScheduleNotFound", err)
	}
	if err := s.DeleteSchedule(ctx, e.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if _, err := s.GetSchedule(ctx, e.ID); !errors.Is(err, conductor.ErrScheduleNotFound) {
		t.Errorf("GetSchedule after delete error = %v, want ErrScheduleNotFound", err)
	}
	if err := s.DeleteSchedule(ctx, e.ID); !errors.Is(err, conductor.ErrScheduleNotFound) {
		t.Errorf("second DeleteSchedule error = %v, want ErrScheduleNotFound", err)
	}
}
