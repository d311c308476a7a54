package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnCallSubmitted(context.Context, *call.Report) error {
	e.calls = append(e.calls, "OnCallSubmitted")
	return nil
}

func (e *allHooksExt) OnCallEnqueued(context.Context, *call.Report) error {
	e.calls = append(e.calls, "OnCallEnqueued")
	return nil
}

func (e *allHooksExt) OnCallStarted(context.Context, *call.Report) error {
	e.calls = append(e.calls, "OnCallStarted")
	return nil
}

func (e *allHooksExt) OnCallSucceeded(context.Context, *call.Report, time.Duration) error {
	e.calls = append(e.calls, "OnCallSucceeded")
	return nil
}

func (e *allHooksExt) OnCallFailed(context.Context, *call.Report, error) error {
	e.calls = append(e.calls, "OnCallFailed")
	return nil
}

func (e *allHooksExt) OnCallRetrying(context.Context, *call.Report, int, time.Duration) error {
	e.calls = append(e.calls, "OnCallRetrying")
	return nil
}

func (e *allHooksExt) OnCallCanceled(context.Context, *call.Report) error {
	e.calls = append(e.calls, "OnCallCanceled")
	return nil
}

func (e *allHooksExt) OnScheduleFired(context.Context, string, *call.Report) error {
	e.calls = append(e.calls, "OnScheduleFired")
	return nil
}

func (e *allHooksExt) OnShutdown(context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// startOnlyExt implements only CallStarted and always fails.
type startOnlyExt struct {
	count int
}

func (e *startOnlyExt) Name() string { return "start-only" }

func (e *startOnlyExt) OnCallStarted(context.Context, *call.Report) error {
	e.count++
	return errors.New("hook failed")
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_EmitsEveryHook(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	rep := call.NewReport(call.NewRequest("noop"))

	r.EmitCallSubmitted(ctx, rep)
	r.EmitCallEnqueued(ctx, rep)
	r.EmitCallStarted(ctx, rep)
	r.EmitCallSucceeded(ctx, rep, time.Second)
	r.EmitCallFailed(ctx, rep, errors.New("x"))
	r.EmitCallRetrying(ctx, rep, 1, time.Second)
	r.EmitCallCanceled(ctx, rep)
	r.EmitScheduleFired(ctx, "nightly", rep)
	r.EmitShutdown(ctx)

	want := []string{
		"OnCallSubmitted", "OnCallEnqueued", "OnCallStarted", "OnCallSucceeded",
		"OnCallFailed", "OnCallRetrying", "OnCallCanceled", "OnScheduleFired", "OnShutdown",
	}
	if len(all.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", all.calls, want)
	}
	for i := range want {
		if all.calls[i] != want[i] {
			t.Errorf("calls[%d] = %s, want %s", i, all.calls[i], want[i])
		}
	}
}

func TestRegistry_OnlyImplementedHooks(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	start := &startOnlyExt{}
	r.Register(start)

	ctx := context.Background()
	rep := call.NewReport(call.NewRequest("noop"))

	// Errors are swallowed and do not stop emission.
	r.EmitCallStarted(ctx, rep)
	r.EmitCallStarted(ctx, rep)
	r.EmitCallSucceeded(ctx, rep, 0)

	if start.count != 2 {
		t.Fatalf("count = %d, want 2", start.count)
	}
	if len(r.Extensions()) != 1 {
		t.Fatalf("Extensions = %d, want 1", len(r.Extensions()))
	}
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *ext.Registry
	r.EmitCallStarted(context.Background(), call.NewReport(call.NewRequest("noop")))
	r.EmitShutdown(context.Background())
	if r.Extensions() != nil {
		t.Fatal("expected nil extensions")
	}
}
