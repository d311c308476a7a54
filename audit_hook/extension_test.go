package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	ah "github.com/xraph/conductor/audit_hook"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*ah.AuditEvent
}

func (m *mockRecorder) Record(_ context.Context, evt *ah.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// ── Test helpers ─────────────────────────────────────

func newTestReport() *call.Report {
	req := call.NewRequest("sync_repo",
		call.WithGroup(id.NewGroupID()),
		call.WithResource(resource.Update, "repository", "repo-1"),
	)
	rep := call.NewReport(req)
	rep.Attempts = 2
	return rep
}

func mustLast(t *testing.T, rec *mockRecorder) *ah.AuditEvent {
	t.Helper()
	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	return evt
}

// ── Tests ────────────────────────────────────────────

func TestExtension_Name(t *testing.T) {
	e := ah.New(&mockRecorder{})
	if e.Name() != "audit-hook" {
		t.Errorf("expected name %q, got %q", "audit-hook", e.Name())
	}
}

func TestExtension_Submitted(t *testing.T) {
	reasons := []resource.Reason{{ResourceType: "repository", ResourceID: "repo-1", Operation: resource.Delete}}

	tests := []struct {
		name     string
		response resource.Response
		reasons  []resource.Reason
		action   string
		severity string
		outcome  string
	}{
		{"accepted", resource.Accepted, nil, ah.ActionCallAccepted, ah.SeverityInfo, ah.OutcomeSuccess},
		{"postponed", resource.Postponed, reasons, ah.ActionCallPostponed, ah.SeverityWarning, ah.OutcomeSuccess},
		{"rejected", resource.Rejected, reasons, ah.ActionCallRejected, ah.SeverityCritical, ah.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{}
			e := ah.New(rec)
			rep := newTestReport()
			rep.Response = tt.response
			rep.Reasons = tt.reasons

			if err := e.OnCallSubmitted(context.Background(), rep); err != nil {
				t.Fatalf("OnCallSubmitted: %v", err)
			}
			evt := mustLast(t, rec)
			if evt.Action != tt.action {
				t.Errorf("Action: want %q, got %q", tt.action, evt.Action)
			}
			if evt.Severity != tt.severity {
				t.Errorf("Severity: want %q, got %q", tt.severity, evt.Severity)
			}
			if evt.Outcome != tt.outcome {
				t.Errorf("Outcome: want %q, got %q", tt.outcome, evt.Outcome)
			}
			if evt.Resource != ah.ResourceCall || evt.Category != ah.CategoryCall {
				t.Errorf("Resource/Category: got %q/%q", evt.Resource, evt.Category)
			}
			if evt.ResourceID != rep.CallID.String() {
				t.Errorf("ResourceID: want %q, got %q", rep.CallID.String(), evt.ResourceID)
			}
			if evt.Metadata["group_id"] != rep.GroupID.String() {
				t.Errorf("group_id: want %q, got %v", rep.GroupID.String(), evt.Metadata["group_id"])
			}

			got, _ := evt.Metadata["conflicts"].([]string)
			if len(tt.reasons) == 0 {
				if got != nil {
					t.Errorf("conflicts: want none, got %v", got)
				}
			} else if len(got) != 1 || got[0] != "repository/repo-1:delete" {
				t.Errorf("conflicts: got %v", got)
			}
		})
	}
}

func TestExtension_CallSucceeded(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	rep := newTestReport()

	if err := e.OnCallSucceeded(context.Background(), rep, 1500*time.Millisecond); err != nil {
		t.Fatalf("OnCallSucceeded: %v", err)
	}
	evt := mustLast(t, rec)
	if evt.Action != ah.ActionCallSucceeded {
		t.Errorf("Action: want %q, got %q", ah.ActionCallSucceeded, evt.Action)
	}
	if evt.Metadata["elapsed_ms"] != int64(1500) {
		t.Errorf("elapsed_ms: want 1500, got %v", evt.Metadata["elapsed_ms"])
	}
	if evt.Metadata["attempts"] != 2 {
		t.Errorf("attempts: want 2, got %v", evt.Metadata["attempts"])
	}
	if evt.Metadata["call_name"] != "sync_repo" {
		t.Errorf("call_name: want sync_repo, got %v", evt.Metadata["call_name"])
	}
}

func TestExtension_CallFailed(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	if err := e.OnCallFailed(context.Background(), newTestReport(), errors.New("disk full")); err != nil {
		t.Fatalf("OnCallFailed: %v", err)
	}
	evt := mustLast(t, rec)
	if evt.Severity != ah.SeverityCritical || evt.Outcome != ah.OutcomeFailure {
		t.Errorf("Severity/Outcome: got %q/%q", evt.Severity, evt.Outcome)
	}
	if evt.Reason != "disk full" {
		t.Errorf("Reason: want %q, got %q", "disk full", evt.Reason)
	}
	if evt.Metadata["error"] != "disk full" {
		t.Errorf("error metadata: got %v", evt.Metadata["error"])
	}
}

func TestExtension_CallRetrying(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	if err := e.OnCallRetrying(context.Background(), newTestReport(), 1, 250*time.Millisecond); err != nil {
		t.Fatalf("OnCallRetrying: %v", err)
	}
	evt := mustLast(t, rec)
	if evt.Action != ah.ActionCallRetrying || evt.Severity != ah.SeverityWarning {
		t.Errorf("Action/Severity: got %q/%q", evt.Action, evt.Severity)
	}
	if evt.Metadata["attempt"] != 1 || evt.Metadata["delay_ms"] != int64(250) {
		t.Errorf("metadata: got %v", evt.Metadata)
	}
}

func TestExtension_CallCanceledByDependency(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	rep := newTestReport()
	rep.Error = "dependency call_01 finished failed"

	if err := e.OnCallCanceled(context.Background(), rep); err != nil {
		t.Fatalf("OnCallCanceled: %v", err)
	}
	evt := mustLast(t, rec)
	if evt.Action != ah.ActionCallCanceled {
		t.Errorf("Action: want %q, got %q", ah.ActionCallCanceled, evt.Action)
	}
	if evt.Reason != rep.Error {
		t.Errorf("Reason: want %q, got %q", rep.Error, evt.Reason)
	}
}

func TestExtension_ScheduleFired(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	rep := newTestReport()

	if err := e.OnScheduleFired(context.Background(), "nightly-sync", rep); err != nil {
		t.Fatalf("OnScheduleFired: %v", err)
	}
	evt := mustLast(t, rec)
	if evt.Resource != ah.ResourceSchedule || evt.Category != ah.CategorySchedule {
		t.Errorf("Resource/Category: got %q/%q", evt.Resource, evt.Category)
	}
	if evt.ResourceID != "nightly-sync" {
		t.Errorf("ResourceID: want nightly-sync, got %q", evt.ResourceID)
	}
	if evt.Metadata["call_id"] != rep.CallID.String() {
		t.Errorf("call_id: got %v", evt.Metadata["call_id"])
	}
}

// ── Filtering ────────────────────────────────────────

func TestExtension_WithActionsFilters(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec, ah.WithActions(ah.ActionCallFailed))
	ctx := context.Background()
	rep := newTestReport()

	_ = e.OnCallStarted(ctx, rep)
	_ = e.OnCallSucceeded(ctx, rep, time.Second)
	if rec.count() != 0 {
		t.Fatalf("filtered actions recorded %d events", rec.count())
	}

	_ = e.OnCallFailed(ctx, rep, errors.New("boom"))
	if rec.count() != 1 {
		t.Fatalf("want 1 event, got %d", rec.count())
	}
}

func TestExtension_RecorderErrorIsSwallowed(t *testing.T) {
	failing := ah.RecorderFunc(func(context.Context, *ah.AuditEvent) error {
		return errors.New("backend down")
	})
	e := ah.New(failing, ah.WithLogger(slog.New(slog.DiscardHandler)))

	if err := e.OnCallEnqueued(context.Background(), newTestReport()); err != nil {
		t.Fatalf("hook must not fail when the recorder does: %v", err)
	}
}

// ── Registry integration ─────────────────────────────

func TestExtension_ThroughRegistry(t *testing.T) {
	rec := &mockRecorder{}
	reg := ext.NewRegistry(slog.New(slog.DiscardHandler))
	reg.Register(ah.New(rec))

	ctx := context.Background()
	rep := newTestReport()
	reg.EmitCallSubmitted(ctx, rep)
	reg.EmitCallEnqueued(ctx, rep)
	reg.EmitCallStarted(ctx, rep)
	reg.EmitCallSucceeded(ctx, rep, time.Millisecond)

	if rec.count() != 4 {
		t.Errorf("want 4 events through the registry, got %d", rec.count())
	}
}

func TestAllActions(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range ah.AllActions() {
		if seen[a] {
			t.Errorf("duplicate action %q", a)
		}
		seen[a] = true
	}
	if len(seen) != 10 {
		t.Errorf("want 10 actions, got %d", len(seen))
	}
}
