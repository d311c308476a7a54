package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/resource"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Extension)(nil)
	_ ext.CallSubmitted = (*Extension)(nil)
	_ ext.CallEnqueued  = (*Extension)(nil)
	_ ext.CallStarted   = (*Extension)(nil)
	_ ext.CallSucceeded = (*Extension)(nil)
	_ ext.CallFailed    = (*Extension)(nil)
	_ ext.CallRetrying  = (*Extension)(nil)
	_ ext.CallCanceled  = (*Extension)(nil)
	_ ext.ScheduleFired = (*Extension)(nil)
)

// Recorder is the interface audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail record.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges conductor lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Submission ──────────────────────────────────────

// OnCallSubmitted implements ext.CallSubmitted. The action depends on the
// conflict response; postponed and rejected calls carry the conflicting
// resources in their metadata.
func (e *Extension) OnCallSubmitted(ctx context.Context, rep *call.Report) error {
	action, severity, outcome := ActionCallAccepted, SeverityInfo, OutcomeSuccess
	var reasonErr error
	switch rep.Response {
	case resource.Postponed:
		action, severity = ActionCallPostponed, SeverityWarning
	case resource.Rejected:
		action, severity, outcome = ActionCallRejected, SeverityCritical, OutcomeFailure
		reasonErr = fmt.Errorf("conflicts with %d resource claim(s)", len(rep.Reasons))
	}
	kv := callMeta(rep)
	if len(rep.Reasons) > 0 {
		kv = append(kv, "conflicts", conflicts(rep.Reasons))
	}
	return e.record(ctx, action, severity, outcome,
		ResourceCall, rep.CallID.String(), CategoryCall, reasonErr, kv...)
}

// ── Call lifecycle hooks ────────────────────────────

// OnCallEnqueued implements ext.CallEnqueued.
func (e *Extension) OnCallEnqueued(ctx context.Context, rep *call.Report) error {
	return e.record(ctx, ActionCallEnqueued, SeverityInfo, OutcomeSuccess,
		ResourceCall, rep.CallID.String(), CategoryCall, nil,
		callMeta(rep)...,
	)
}

// OnCallStarted implements ext.CallStarted.
func (e *Extension) OnCallStarted(ctx context.Context, rep *call.Report) error {
	return e.record(ctx, ActionCallStarted, SeverityInfo, OutcomeSuccess,
		ResourceCall, rep.CallID.String(), CategoryCall, nil,
		callMeta(rep)...,
	)
}

// OnCallSucceeded implements ext.CallSucceeded.
func (e *Extension) OnCallSucceeded(ctx context.Context, rep *call.Report, elapsed time.Duration) error {
	return e.record(ctx, ActionCallSucceeded, SeverityInfo, OutcomeSuccess,
		ResourceCall, rep.CallID.String(), CategoryCall, nil,
		append(callMeta(rep),
			"attempts", rep.Attempts,
			"elapsed_ms", elapsed.Milliseconds(),
		)...,
	)
}

// OnCallFailed implements ext.CallFailed.
func (e *Extension) OnCallFailed(ctx context.Context, rep *call.Report, callErr error) error {
	return e.record(ctx, ActionCallFailed, SeverityCritical, OutcomeFailure,
		ResourceCall, rep.CallID.String(), CategoryCall, callErr,
		append(callMeta(rep), "attempts", rep.Attempts)...,
	)
}

// OnCallRetrying implements ext.CallRetrying.
func (e *Extension) OnCallRetrying(ctx context.Context, rep *call.Report, attempt int, delay time.Duration) error {
	return e.record(ctx, ActionCallRetrying, SeverityWarning, OutcomeFailure,
		ResourceCall, rep.CallID.String(), CategoryCall, nil,
		append(callMeta(rep),
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
		)...,
	)
}

// OnCallCanceled implements ext.CallCanceled.
func (e *Extension) OnCallCanceled(ctx context.Context, rep *call.Report) error {
	var reasonErr error
	if rep.Error != "" {
		reasonErr = fmt.Errorf("%s", rep.Error)
	}
	return e.record(ctx, ActionCallCanceled, SeverityWarning, OutcomeFailure,
		ResourceCall, rep.CallID.String(), CategoryCall, reasonErr,
		callMeta(rep)...,
	)
}

// ── Schedule hooks ──────────────────────────────────

// OnScheduleFired implements ext.ScheduleFired.
func (e *Extension) OnScheduleFired(ctx context.Context, entryName string, rep *call.Report) error {
	return e.record(ctx, ActionScheduleFired, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, entryName, CategorySchedule, nil,
		"call_id", rep.CallID.String(),
		"call_name", rep.Name,
		"response", string(rep.Response),
	)
}

// ── Internal helpers ────────────────────────────────

func callMeta(rep *call.Report) []any {
	kv := []any{"call_name", rep.Name}
	if !rep.GroupID.IsNil() {
		kv = append(kv, "group_id", rep.GroupID.String())
	}
	if !rep.ScheduleID.IsNil() {
		kv = append(kv, "schedule_id", rep.ScheduleID.String())
	}
	return kv
}

// conflicts renders reasons as "type/id:operation".
func conflicts(reasons []resource.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = r.ResourceType + "/" + r.ResourceID + ":" + string(r.Operation)
	}
	return out
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resourceType, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resourceType,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
