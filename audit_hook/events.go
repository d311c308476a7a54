package audithook

// Audit event actions. Each constant becomes the Action field of the audit
// event. Submission is split by conflict response.
const (
	ActionCallAccepted  = "call.accepted"
	ActionCallPostponed = "call.postponed"
	ActionCallRejected  = "call.rejected"
	ActionCallEnqueued  = "call.enqueued"
	ActionCallStarted   = "call.started"
	ActionCallSucceeded = "call.succeeded"
	ActionCallFailed    = "call.failed"
	ActionCallRetrying  = "call.retrying"
	ActionCallCanceled  = "call.canceled"
	ActionScheduleFired = "schedule.fired"
)

// Audit event categories group related actions.
const (
	CategoryCall     = "conductor.call"
	CategorySchedule = "conductor.schedule"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceCall     = "call"
	ResourceSchedule = "schedule_entry"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionCallAccepted,
		ActionCallPostponed,
		ActionCallRejected,
		ActionCallEnqueued,
		ActionCallStarted,
		ActionCallSucceeded,
		ActionCallFailed,
		ActionCallRetrying,
		ActionCallCanceled,
		ActionScheduleFired,
	}
}
