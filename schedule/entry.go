package schedule

import (
	"encoding/json"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// Entry is a scheduled call.
type Entry struct {
	conductor.Entity

	ID        id.ScheduleID              `json:"id"`
	Name      string                     `json:"name"`
	Spec      string                     `json:"spec"`
	CallName  string                     `json:"call_name"`
	Args      []json.RawMessage          `json:"args,omitempty"`
	Kwargs    map[string]json.RawMessage `json:"kwargs,omitempty"`
	Resources resource.Map               `json:"resources,omitempty"`
	Tags      []string                   `json:"tags,omitempty"`
	Queue     string                     `json:"queue,omitempty"`
	Enabled   bool                       `json:"enabled"`
	LastRunAt *time.Time                 `json:"last_run_at,omitempty"`
	NextRunAt *time.Time                 `json:"next_run_at,omitempty"`
}

// NewEntry creates an enabled entry firing req's callable on spec. The
// request's id, group and dependencies are not kept; each firing gets a
// fresh call.
func NewEntry(name, spec string, req *call.Request) *Entry {
	return &Entry{
		Entity:    conductor.NewEntity(),
		ID:        id.NewScheduleID(),
		Name:      name,
		Spec:      spec,
		CallName:  req.Name,
		Args:      append([]json.RawMessage(nil), req.Args...),
		Kwargs:    req.Clone().Kwargs,
		Resources: req.Resources.Clone(),
		Tags:      append([]string(nil), req.Tags...),
		Queue:     req.Queue,
		Enabled:   true,
	}
}

// Request builds a fresh call request for one firing of e.
func (e *Entry) Request() *call.Request {
	req := call.NewRequest(e.CallName,
		call.WithResources(e.Resources),
		call.WithTags(e.Tags...),
		call.WithSchedule(e.ID),
	)
	req.Args = append([]json.RawMessage(nil), e.Args...)
	if len(e.Kwargs) > 0 {
		req.Kwargs = make(map[string]json.RawMessage, len(e.Kwargs))
		for k, v := range e.Kwargs {
			req.Kwargs[k] = v
		}
	}
	if e.Queue != "" {
		req.Queue = e.Queue
	}
	return req
}
