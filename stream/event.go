// Package stream fans conductor lifecycle events out to in-process
// subscribers. The Broker is an ext.Extension; subscribers pick topics for
// a single call, a whole group, a callable name or everything.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Call events.
	EventCallSubmitted EventType = "call.submitted"
	EventCallEnqueued  EventType = "call.enqueued"
	EventCallStarted   EventType = "call.started"
	EventCallSucceeded EventType = "call.succeeded"
	EventCallFailed    EventType = "call.failed"
	EventCallRetrying  EventType = "call.retrying"
	EventCallCanceled  EventType = "call.canceled"

	// Schedule events.
	EventScheduleFired EventType = "schedule.fired"
)

// Event is the envelope sent to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"ts"`

	// Topics are the entity topics the event belongs to, such as the
	// call and group topics. Global topics are derived from Type.
	Topics []string `json:"topics,omitempty"`

	Data json.RawMessage `json:"data"`
}

// CallEventData is the payload for call lifecycle events.
type CallEventData struct {
	CallID    string   `json:"call_id"`
	CallName  string   `json:"call_name"`
	GroupID   string   `json:"group_id,omitempty"`
	State     string   `json:"state"`
	Response  string   `json:"response"`
	Conflicts []string `json:"conflicts,omitempty"`
	Attempt   int      `json:"attempt,omitempty"`
	ElapsedMs int64    `json:"elapsed_ms,omitempty"`
	DelayMs   int64    `json:"delay_ms,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ScheduleEventData is the payload for schedule events.
type ScheduleEventData struct {
	EntryName string `json:"entry_name"`
	CallID    string `json:"call_id"`
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
