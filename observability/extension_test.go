package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/observability"
	"github.com/xraph/conductor/resource"
)

func newTestExtension() *observability.MetricsExtension {
	return observability.NewMetricsExtensionWithFactory(gu.NewMetricsCollector("test"))
}

func newTestReport(resp resource.Response) *call.Report {
	rep := call.NewReport(call.NewRequest("sync_repo", call.WithQueue("default")))
	rep.Response = resp
	return rep
}

func TestMetricsExtension_Name(t *testing.T) {
	e := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_SubmittedSplitsByResponse(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		response resource.Response
		counter  func(*observability.MetricsExtension) gu.Counter
	}{
		{resource.Accepted, func(m *observability.MetricsExtension) gu.Counter { return m.CallAccepted }},
		{resource.Postponed, func(m *observability.MetricsExtension) gu.Counter { return m.CallPostponed }},
		{resource.Rejected, func(m *observability.MetricsExtension) gu.Counter { return m.CallRejected }},
	}
	for _, tt := range tests {
		t.Run(string(tt.response), func(t *testing.T) {
			e := newTestExtension()
			if err := e.OnCallSubmitted(ctx, newTestReport(tt.response)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := tt.counter(e).Value(); got != 1 {
				t.Errorf("want 1, got %v", got)
			}
			total := e.CallAccepted.Value() + e.CallPostponed.Value() + e.CallRejected.Value()
			if total != 1 {
				t.Errorf("exactly one submission counter should move, total = %v", total)
			}
		})
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e := newTestExtension()

	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	rep := newTestReport(resource.Accepted)

	reg.EmitCallSubmitted(ctx, rep)
	reg.EmitCallEnqueued(ctx, rep)
	reg.EmitCallStarted(ctx, rep)
	reg.EmitCallSucceeded(ctx, rep, 50*time.Millisecond)
	reg.EmitCallFailed(ctx, rep, errors.New("fail"))
	reg.EmitCallRetrying(ctx, rep, 1, time.Second)
	reg.EmitCallCanceled(ctx, rep)
	reg.EmitScheduleFired(ctx, "hourly", rep)

	checks := []struct {
		name  string
		value float64
	}{
		{"CallAccepted", e.CallAccepted.Value()},
		{"CallEnqueued", e.CallEnqueued.Value()},
		{"CallStarted", e.CallStarted.Value()},
		{"CallSucceeded", e.CallSucceeded.Value()},
		{"CallFailed", e.CallFailed.Value()},
		{"CallRetried", e.CallRetried.Value()},
		{"CallCanceled", e.CallCanceled.Value()},
		{"ScheduleFired", e.ScheduleFired.Value()},
	}

	for _, c := range checks {
		if c.value != 1 {
			t.Errorf("%s: want 1, got %v", c.name, c.value)
		}
	}
}
