package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/ledger"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/store/memory"
)

func hold(t *testing.T, l *ledger.Ledger, op resource.Operation, typ, rid string) id.CallID {
	t.Helper()
	callID := id.NewCallID()
	claims := resource.NewMap().Add(op, typ, rid).Flatten(callID)
	if err := l.Insert(context.Background(), claims); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return callID
}

func TestFindConflicts_EmptyProposal(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	hold(t, l, resource.Delete, "repo", "r1")

	got, err := l.FindConflicts(context.Background(), resource.NewMap())
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if got.Response != resource.Accepted || len(got.Claims) != 0 || len(got.Blockers) != 0 {
		t.Fatalf("got %+v, want accepted with nothing", got)
	}
}

func TestFindConflicts_NoMatchingClaims(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	hold(t, l, resource.Delete, "repo", "other")

	for _, op := range resource.Operations {
		got, err := l.FindConflicts(context.Background(), resource.NewMap().Add(op, "repo", "r1"))
		if err != nil {
			t.Fatalf("FindConflicts: %v", err)
		}
		if got.Response != resource.Accepted || len(got.Blockers) != 0 || len(got.Reasons) != 0 {
			t.Errorf("%s: got %+v, want accepted", op, got)
		}
		if len(got.Claims) != 1 || !got.Claims[0].CallID.IsNil() {
			t.Errorf("%s: claims = %+v", op, got.Claims)
		}
	}
}

func TestFindConflicts_ReadThenDeleteRejected(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	t1 := hold(t, l, resource.Read, "content_unit", "cu-1")

	got, err := l.FindConflicts(context.Background(),
		resource.NewMap().Add(resource.Delete, "content_unit", "cu-1"))
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if got.Response != resource.Rejected {
		t.Fatalf("Response = %s, want rejected", got.Response)
	}
	if len(got.Blockers) != 1 || !got.BlockedBy(t1) {
		t.Fatalf("Blockers = %v, want [%s]", got.Blockers, t1)
	}
	want := resource.Reason{ResourceType: "content_unit", ResourceID: "cu-1", Operation: resource.Read}
	if len(got.Reasons) != 1 || got.Reasons[0] != want {
		t.Fatalf("Reasons = %v, want [%v]", got.Reasons, want)
	}
}

func TestFindConflicts_DeleteThenReadRejected(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	t1 := hold(t, l, resource.Delete, "content_unit", "cu-1")

	got, err := l.FindConflicts(context.Background(),
		resource.NewMap().Add(resource.Read, "content_unit", "cu-1"))
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if got.Response != resource.Rejected || !got.BlockedBy(t1) {
		t.Fatalf("got %+v, want rejected by %s", got, t1)
	}
}

func TestFindConflicts_RejectionDominates(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	postponer := hold(t, l, resource.Create, "repo", "r1")
	rejecter := hold(t, l, resource.Delete, "repo", "r2")

	got, err := l.FindConflicts(context.Background(),
		resource.NewMap().Add(resource.Update, "repo", "r1", "r2"))
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if got.Response != resource.Rejected {
		t.Fatalf("Response = %s, want rejected", got.Response)
	}
	if !got.BlockedBy(rejecter) || got.BlockedBy(postponer) {
		t.Fatalf("Blockers = %v, want only %s", got.Blockers, rejecter)
	}
	if len(got.Reasons) != 1 || got.Reasons[0].ResourceID != "r2" {
		t.Fatalf("Reasons = %v, want only the rejecting reason", got.Reasons)
	}
}

func TestFindConflicts_PostponeThenResolve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := ledger.New(memory.New())
	t1 := hold(t, l, resource.Create, "repo", "r1")
	proposal := resource.NewMap().Add(resource.Update, "repo", "r1")

	got, err := l.FindConflicts(ctx, proposal)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if got.Response != resource.Postponed || !got.BlockedBy(t1) {
		t.Fatalf("got %+v, want postponed by %s", got, t1)
	}

	if err := l.Remove(ctx, t1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	again, err := l.FindConflicts(ctx, proposal)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if again.Response != resource.Accepted {
		t.Fatalf("Response after removal = %s, want accepted", again.Response)
	}
}

func TestFindConflicts_ReasonsDeduplicated(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	a := hold(t, l, resource.Create, "repo", "r1")
	b := hold(t, l, resource.Create, "repo", "r1")
	hold(t, l, resource.Create, "repo", "r2")

	got, err := l.FindConflicts(context.Background(),
		resource.NewMap().Add(resource.Read, "repo", "r1", "r2"))
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if got.Response != resource.Postponed {
		t.Fatalf("Response = %s", got.Response)
	}
	if len(got.Blockers) != 3 || got.Blockers[0].String() != a.String() || got.Blockers[1].String() != b.String() {
		t.Fatalf("Blockers = %v", got.Blockers)
	}
	if len(got.Reasons) != 2 || got.Reasons[0].ResourceID != "r1" || got.Reasons[1].ResourceID != "r2" {
		t.Fatalf("Reasons = %v, want r1 then r2 once each", got.Reasons)
	}
}

func TestFindConflicts_MultipleOperationsOnOneKey(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	holder := hold(t, l, resource.Read, "repo", "r1")

	// Read alone would be accepted; Delete on the same key is rejected.
	got, err := l.FindConflicts(context.Background(),
		resource.NewMap().Add(resource.Read, "repo", "r1").Add(resource.Delete, "repo", "r1"))
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if got.Response != resource.Rejected || !got.BlockedBy(holder) {
		t.Fatalf("got %+v, want rejected", got)
	}
}

func TestInsert_RequiresCallID(t *testing.T) {
	t.Parallel()
	l := ledger.New(memory.New())
	claims := resource.NewMap().Add(resource.Read, "repo", "r1").Flatten(id.Nil)

	err := l.Insert(context.Background(), claims)
	if !errors.Is(err, conductor.ErrClaimWithoutCallID) {
		t.Fatalf("err = %v, want ErrClaimWithoutCallID", err)
	}
}

type failingStore struct {
	ledger.Store
}

func (failingStore) FindClaims(context.Context, []resource.Key) ([]*resource.Claim, error) {
	return nil, errors.New("connection reset")
}

func TestFindConflicts_StoreErrorPropagates(t *testing.T) {
	t.Parallel()
	l := ledger.New(failingStore{Store: memory.New()})

	_, err := l.FindConflicts(context.Background(), resource.NewMap().Add(resource.Read, "repo", "r1"))
	if err == nil {
		t.Fatal("expected error")
	}
}
