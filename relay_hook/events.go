package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/catalog"
)

// Conductor lifecycle event types. Each constant maps to one ext lifecycle
// hook and is used as the event.Event.Type when sending via Relay.
const (
	EventCallAccepted  = "conductor.call.accepted"
	EventCallPostponed = "conductor.call.postponed"
	EventCallRejected  = "conductor.call.rejected"
	EventCallStarted   = "conductor.call.started"
	EventCallSucceeded = "conductor.call.succeeded"
	EventCallFailed    = "conductor.call.failed"
	EventCallRetrying  = "conductor.call.retrying"
	EventCallCanceled  = "conductor.call.canceled"
	EventScheduleFired = "conductor.schedule.fired"
)

// AllDefinitions returns webhook definitions for all conductor lifecycle
// event types. Pass these to relay.RegisterEventType to populate the catalog.
func AllDefinitions() []catalog.WebhookDefinition {
	return []catalog.WebhookDefinition{
		// ── Submission events ───────────────────────────
		{
			Name:        EventCallAccepted,
			Description: "Fired when a call is accepted without resource conflicts.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		{
			Name:        EventCallPostponed,
			Description: "Fired when a call is queued behind conflicting calls.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		{
			Name:        EventCallRejected,
			Description: "Fired when a call is refused because of resource conflicts.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		// ── Execution events ────────────────────────────
		{
			Name:        EventCallStarted,
			Description: "Fired when the task queue begins running a call.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		{
			Name:        EventCallSucceeded,
			Description: "Fired when a call finishes successfully.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		{
			Name:        EventCallFailed,
			Description: "Fired when a call fails terminally.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		{
			Name:        EventCallRetrying,
			Description: "Fired when a failed call is scheduled for another attempt.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		{
			Name:        EventCallCanceled,
			Description: "Fired when a call is canceled or its dependency ended badly.",
			Group:       "calls",
			Version:     "2025-01-01",
		},
		// ── Schedule events ─────────────────────────────
		{
			Name:        EventScheduleFired,
			Description: "Fired when a schedule entry submits a call.",
			Group:       "schedules",
			Version:     "2025-01-01",
		},
	}
}

// RegisterAll registers all conductor webhook event types in the Relay
// catalog. Call this once during application startup before sending events.
func RegisterAll(ctx context.Context, r *relay.Relay) error {
	for _, def := range AllDefinitions() {
		if _, err := r.RegisterEventType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
