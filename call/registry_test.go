package call_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/conductor/call"
)

type syncInput struct {
	RepoID string `json:"repo_id"`
	Mirror bool   `json:"mirror"`
}

func TestRegistry_RegisterDefinition(t *testing.T) {
	r := call.NewRegistry()

	var got syncInput
	def := call.NewDefinition("sync_repo", func(_ context.Context, in syncInput) (any, error) {
		got = in
		return "ok", nil
	})
	call.RegisterDefinition(r, def)

	h, ok := r.Get("sync_repo")
	if !ok {
		t.Fatal("expected handler to be registered")
	}

	req := def.Request(syncInput{RepoID: "repo-1", Mirror: true})
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result = %v, want ok", res)
	}
	if got.RepoID != "repo-1" || !got.Mirror {
		t.Errorf("decoded = %+v", got)
	}
}

func TestRegistry_HandlerError(t *testing.T) {
	r := call.NewRegistry()
	boom := errors.New("boom")
	r.Register("fail", func(context.Context, *call.Request) (any, error) { return nil, boom })

	h, _ := r.Get("fail")
	if _, err := h(context.Background(), call.NewRequest("fail")); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	if _, ok := call.NewRegistry().Get("missing"); ok {
		t.Fatal("expected no handler")
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := call.NewRegistry()
	noop := func(context.Context, *call.Request) (any, error) { return nil, nil }
	r.Register("b", noop)
	r.Register("a", noop)
	r.Register("c", noop)

	names := r.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Fatalf("Names = %v", names)
	}
}
