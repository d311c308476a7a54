package call

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// DefaultQueue is the task queue lane used when a request names none.
const DefaultQueue = "default"

// Request describes one schedulable unit of work.
type Request struct {
	ID           id.CallID                  `json:"id"`
	Name         string                     `json:"name"`
	Args         []json.RawMessage          `json:"args,omitempty"`
	Kwargs       map[string]json.RawMessage `json:"kwargs,omitempty"`
	Resources    resource.Map               `json:"resources,omitempty"`
	Dependencies Dependencies               `json:"dependencies,omitempty"`
	GroupID      id.GroupID                 `json:"group_id,omitempty"`
	Asynchronous bool                       `json:"asynchronous"`
	Tags         []string                   `json:"tags,omitempty"`
	Queue        string                     `json:"queue"`
	Timeout      time.Duration              `json:"timeout,omitempty"`
	MaxRetries   int                        `json:"max_retries"`
	ScheduleID   id.ScheduleID              `json:"schedule_id,omitempty"`

	err error
}

// RequestOption configures a Request.
type RequestOption func(*Request)

// NewRequest creates a request for the named callable with a fresh call id.
func NewRequest(name string, opts ...RequestOption) *Request {
	r := &Request{
		ID:           id.NewCallID(),
		Name:         name,
		Resources:    resource.NewMap(),
		Dependencies: make(Dependencies),
		Queue:        DefaultQueue,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithID overrides the generated call id.
func WithID(callID id.CallID) RequestOption {
	return func(r *Request) { r.ID = callID }
}

// WithArgs appends positional arguments. Each value is JSON-encoded.
func WithArgs(args ...any) RequestOption {
	return func(r *Request) {
		for _, a := range args {
			raw, err := json.Marshal(a)
			if err != nil {
				r.fail(fmt.Errorf("encode arg %d: %w", len(r.Args), err))
				return
			}
			r.Args = append(r.Args, raw)
		}
	}
}

// WithKwarg sets a keyword argument. The value is JSON-encoded.
func WithKwarg(key string, value any) RequestOption {
	return func(r *Request) {
		raw, err := json.Marshal(value)
		if err != nil {
			r.fail(fmt.Errorf("encode kwarg %q: %w", key, err))
			return
		}
		if r.Kwargs == nil {
			r.Kwargs = make(map[string]json.RawMessage)
		}
		r.Kwargs[key] = raw
	}
}

// WithKwargs sets keyword arguments from a struct or map by encoding it as
// a JSON object.
func WithKwargs(v any) RequestOption {
	return func(r *Request) {
		raw, err := json.Marshal(v)
		if err != nil {
			r.fail(fmt.Errorf("encode kwargs: %w", err))
			return
		}
		var kw map[string]json.RawMessage
		if err := json.Unmarshal(raw, &kw); err != nil {
			r.fail(fmt.Errorf("kwargs must encode to a JSON object: %w", err))
			return
		}
		if r.Kwargs == nil {
			r.Kwargs = make(map[string]json.RawMessage, len(kw))
		}
		for k, v := range kw {
			r.Kwargs[k] = v
		}
	}
}

// WithResource declares that the call performs op on the given resources.
func WithResource(op resource.Operation, resourceType string, ids ...string) RequestOption {
	return func(r *Request) { r.Resources.Add(op, resourceType, ids...) }
}

// WithResources declares a whole resource map.
func WithResources(m resource.Map) RequestOption {
	return func(r *Request) {
		for op, byType := range m {
			for typ, ids := range byType {
				r.Resources.Add(op, typ, ids...)
			}
		}
	}
}

// WithDependency makes the call wait for callID to finish in one of states.
// No states means any terminal state.
func WithDependency(callID id.CallID, states ...State) RequestOption {
	return func(r *Request) { r.Dependencies.Add(callID, states...) }
}

// WithGroup assigns the call to a group.
func WithGroup(groupID id.GroupID) RequestOption {
	return func(r *Request) { r.GroupID = groupID }
}

// WithAsynchronous marks the call as reporting completion out of band.
func WithAsynchronous() RequestOption {
	return func(r *Request) { r.Asynchronous = true }
}

// WithTags appends free-form labels.
func WithTags(tags ...string) RequestOption {
	return func(r *Request) { r.Tags = append(r.Tags, tags...) }
}

// WithQueue sets the task queue lane.
func WithQueue(q string) RequestOption {
	return func(r *Request) { r.Queue = q }
}

// WithTimeout sets the maximum execution duration per attempt.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = d }
}

// WithMaxRetries sets how many times the task queue retries a failure.
func WithMaxRetries(n int) RequestOption {
	return func(r *Request) { r.MaxRetries = n }
}

// WithSchedule stamps the id of the schedule that produced the call.
func WithSchedule(scheduleID id.ScheduleID) RequestOption {
	return func(r *Request) { r.ScheduleID = scheduleID }
}

func (r *Request) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Validate reports construction errors and malformed fields.
func (r *Request) Validate() error {
	if r.err != nil {
		return fmt.Errorf("call %q: %w", r.Name, r.err)
	}
	if r.ID.IsNil() {
		return fmt.Errorf("call %q: missing id", r.Name)
	}
	if r.Name == "" {
		return fmt.Errorf("call %s: missing callable name", r.ID)
	}
	for op := range r.Resources {
		if !op.Valid() {
			return fmt.Errorf("call %s: unknown resource operation %q", r.ID, op)
		}
	}
	for dep, states := range r.Dependencies {
		for _, s := range states {
			if !s.Terminal() {
				return fmt.Errorf("call %s: dependency %s requires non-terminal state %q", r.ID, dep, s)
			}
		}
	}
	return nil
}

// DecodeArg decodes the positional argument at index i into v.
func (r *Request) DecodeArg(i int, v any) error {
	if i < 0 || i >= len(r.Args) {
		return fmt.Errorf("call %s: no positional argument %d", r.ID, i)
	}
	return json.Unmarshal(r.Args[i], v)
}

// DecodeKwargs decodes the keyword arguments into v as a JSON object.
func (r *Request) DecodeKwargs(v any) error {
	if len(r.Kwargs) == 0 {
		return nil
	}
	raw, err := json.Marshal(r.Kwargs)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	cp := *r
	cp.Args = append([]json.RawMessage(nil), r.Args...)
	if r.Kwargs != nil {
		cp.Kwargs = make(map[string]json.RawMessage, len(r.Kwargs))
		for k, v := range r.Kwargs {
			cp.Kwargs[k] = v
		}
	}
	cp.Resources = r.Resources.Clone()
	cp.Dependencies = r.Dependencies.Clone()
	cp.Tags = append([]string(nil), r.Tags...)
	return &cp
}
