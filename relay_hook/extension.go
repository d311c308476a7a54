package relayhook

import (
	"context"
	"time"

	"github.com/xraph/relay"
	"github.com/xraph/relay/event"

	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/ext"
	"github.com/xraph/conductor/resource"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Extension)(nil)
	_ ext.CallSubmitted = (*Extension)(nil)
	_ ext.CallStarted   = (*Extension)(nil)
	_ ext.CallSucceeded = (*Extension)(nil)
	_ ext.CallFailed    = (*Extension)(nil)
	_ ext.CallRetrying  = (*Extension)(nil)
	_ ext.CallCanceled  = (*Extension)(nil)
	_ ext.ScheduleFired = (*Extension)(nil)
)

// Extension bridges conductor lifecycle events to Relay for webhook
// delivery. Each lifecycle hook emits a typed event via [relay.Relay.Send].
type Extension struct {
	relay    *relay.Relay
	enabled  map[string]bool        // nil = all enabled
	payloads map[string]PayloadFunc // custom payload builders
	tenant   TenantFunc
}

// New creates an Extension that emits conductor lifecycle events through
// the provided Relay instance.
func New(r *relay.Relay, opts ...Option) *Extension {
	h := &Extension{relay: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "relay-hook" }

// ── Call lifecycle hooks ────────────────────────────

// OnCallSubmitted implements ext.CallSubmitted.
func (h *Extension) OnCallSubmitted(ctx context.Context, rep *call.Report) error {
	eventType := EventCallAccepted
	switch rep.Response {
	case resource.Postponed:
		eventType = EventCallPostponed
	case resource.Rejected:
		eventType = EventCallRejected
	}
	return h.send(ctx, eventType, rep, &submittedPayload{
		callPayload: *newCallPayload(rep),
		Response:    string(rep.Response),
		Conflicts:   rep.Reasons,
	})
}

// OnCallStarted implements ext.CallStarted.
func (h *Extension) OnCallStarted(ctx context.Context, rep *call.Report) error {
	return h.send(ctx, EventCallStarted, rep, newCallPayload(rep))
}

// OnCallSucceeded implements ext.CallSucceeded.
func (h *Extension) OnCallSucceeded(ctx context.Context, rep *call.Report, elapsed time.Duration) error {
	return h.send(ctx, EventCallSucceeded, rep, &callSucceededPayload{
		callPayload: *newCallPayload(rep),
		ElapsedMs:   elapsed.Milliseconds(),
	})
}

// OnCallFailed implements ext.CallFailed.
func (h *Extension) OnCallFailed(ctx context.Context, rep *call.Report, callErr error) error {
	return h.send(ctx, EventCallFailed, rep, &callFailedPayload{
		callPayload: *newCallPayload(rep),
		Error:       callErr.Error(),
	})
}

// OnCallRetrying implements ext.CallRetrying.
func (h *Extension) OnCallRetrying(ctx context.Context, rep *call.Report, attempt int, delay time.Duration) error {
	return h.send(ctx, EventCallRetrying, rep, &callRetryingPayload{
		callPayload: *newCallPayload(rep),
		Attempt:     attempt,
		NextRunAt:   time.Now().Add(delay).UTC().Format(time.RFC3339),
	})
}

// OnCallCanceled implements ext.CallCanceled.
func (h *Extension) OnCallCanceled(ctx context.Context, rep *call.Report) error {
	return h.send(ctx, EventCallCanceled, rep, &callFailedPayload{
		callPayload: *newCallPayload(rep),
		Error:       rep.Error,
	})
}

// ── Schedule hooks ──────────────────────────────────

// OnScheduleFired implements ext.ScheduleFired. Schedule events are
// system-level and carry no tenant.
func (h *Extension) OnScheduleFired(ctx context.Context, entryName string, rep *call.Report) error {
	return h.send(ctx, EventScheduleFired, nil, &schedulePayload{
		EntryName: entryName,
		CallID:    rep.CallID.String(),
		Response:  string(rep.Response),
	})
}

// ── Internal helpers ────────────────────────────────

// send emits an event through Relay if the event type is enabled.
func (h *Extension) send(ctx context.Context, eventType string, rep *call.Report, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	var tenantID string
	if rep != nil && h.tenant != nil {
		tenantID = h.tenant(rep)
	}

	return h.relay.Send(ctx, &event.Event{
		Type:     eventType,
		TenantID: tenantID,
		Data:     data,
	})
}

// ── Default payload types ───────────────────────────

type callPayload struct {
	CallID     string   `json:"call_id"`
	CallName   string   `json:"call_name"`
	GroupID    string   `json:"group_id,omitempty"`
	ScheduleID string   `json:"schedule_id,omitempty"`
	State      string   `json:"state"`
	Tags       []string `json:"tags,omitempty"`
}

func newCallPayload(rep *call.Report) *callPayload {
	p := &callPayload{
		CallID:   rep.CallID.String(),
		CallName: rep.Name,
		State:    string(rep.State),
		Tags:     rep.Tags,
	}
	if !rep.GroupID.IsNil() {
		p.GroupID = rep.GroupID.String()
	}
	if !rep.ScheduleID.IsNil() {
		p.ScheduleID = rep.ScheduleID.String()
	}
	return p
}

type submittedPayload struct {
	callPayload
	Response  string            `json:"response"`
	Conflicts []resource.Reason `json:"conflicts,omitempty"`
}

type callSucceededPayload struct {
	callPayload
	ElapsedMs int64 `json:"elapsed_ms"`
}

type callFailedPayload struct {
	callPayload
	Error string `json:"error,omitempty"`
}

type callRetryingPayload struct {
	callPayload
	Attempt   int    `json:"attempt"`
	NextRunAt string `json:"next_run_at"`
}

type schedulePayload struct {
	EntryName string `json:"entry_name"`
	CallID    string `json:"call_id"`
	Response  string `json:"response"`
}
