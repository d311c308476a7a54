package call

import (
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// Report is the outcome record of a call.
type Report struct {
	conductor.Entity

	CallID      id.CallID         `json:"call_id"`
	GroupID     id.GroupID        `json:"group_id,omitempty"`
	ScheduleID  id.ScheduleID     `json:"schedule_id,omitempty"`
	Name        string            `json:"name"`
	Response    resource.Response `json:"response"`
	State       State             `json:"state"`
	Reasons     []resource.Reason `json:"reasons,omitempty"`
	Result      any               `json:"result,omitempty"`
	Progress    any               `json:"progress,omitempty"`
	Error       string            `json:"error,omitempty"`
	Traceback   string            `json:"traceback,omitempty"`
	Attempts    int               `json:"attempts"`
	Tags        []string          `json:"tags,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// NewReport creates a waiting report for req.
func NewReport(req *Request) *Report {
	return &Report{
		Entity:     conductor.NewEntity(),
		CallID:     req.ID,
		GroupID:    req.GroupID,
		ScheduleID: req.ScheduleID,
		Name:       req.Name,
		Response:   resource.Accepted,
		State:      StateWaiting,
		Tags:       append([]string(nil), req.Tags...),
	}
}

// Clone returns a copy that shares no slices with r.
func (r *Report) Clone() *Report {
	cp := *r
	cp.Reasons = append([]resource.Reason(nil), r.Reasons...)
	cp.Tags = append([]string(nil), r.Tags...)
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
