package call

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// Descriptor is the flat, codec-friendly form of a Request persisted in the
// queue snapshot.
type Descriptor struct {
	ID           string                         `json:"id" msgpack:"id"`
	Name         string                         `json:"name" msgpack:"name"`
	Args         []json.RawMessage              `json:"args,omitempty" msgpack:"args,omitempty"`
	Kwargs       map[string]json.RawMessage     `json:"kwargs,omitempty" msgpack:"kwargs,omitempty"`
	Resources    map[string]map[string][]string `json:"resources,omitempty" msgpack:"resources,omitempty"`
	Dependencies map[string][]string            `json:"dependencies,omitempty" msgpack:"dependencies,omitempty"`
	GroupID      string                         `json:"group_id,omitempty" msgpack:"group_id,omitempty"`
	Asynchronous bool                           `json:"asynchronous" msgpack:"asynchronous"`
	Tags         []string                       `json:"tags,omitempty" msgpack:"tags,omitempty"`
	Queue        string                         `json:"queue,omitempty" msgpack:"queue,omitempty"`
	Timeout      time.Duration                  `json:"timeout,omitempty" msgpack:"timeout,omitempty"`
	MaxRetries   int                            `json:"max_retries,omitempty" msgpack:"max_retries,omitempty"`
	ScheduleID   string                         `json:"schedule_id,omitempty" msgpack:"schedule_id,omitempty"`
}

// Descriptor flattens r for persistence.
func (r *Request) Descriptor() *Descriptor {
	d := &Descriptor{
		ID:           r.ID.String(),
		Name:         r.Name,
		Args:         append([]json.RawMessage(nil), r.Args...),
		GroupID:      r.GroupID.String(),
		Asynchronous: r.Asynchronous,
		Tags:         append([]string(nil), r.Tags...),
		Queue:        r.Queue,
		Timeout:      r.Timeout,
		MaxRetries:   r.MaxRetries,
		ScheduleID:   r.ScheduleID.String(),
	}
	if len(r.Kwargs) > 0 {
		d.Kwargs = make(map[string]json.RawMessage, len(r.Kwargs))
		for k, v := range r.Kwargs {
			d.Kwargs[k] = v
		}
	}
	if len(r.Resources) > 0 {
		d.Resources = make(map[string]map[string][]string, len(r.Resources))
		for op, byType := range r.Resources {
			cp := make(map[string][]string, len(byType))
			for typ, ids := range byType {
				cp[typ] = append([]string(nil), ids...)
			}
			d.Resources[string(op)] = cp
		}
	}
	if len(r.Dependencies) > 0 {
		d.Dependencies = make(map[string][]string, len(r.Dependencies))
		for dep, states := range r.Dependencies {
			ss := make([]string, len(states))
			for i, s := range states {
				ss[i] = string(s)
			}
			d.Dependencies[dep] = ss
		}
	}
	return d
}

// Request rebuilds the call request described by d.
func (d *Descriptor) Request() (*Request, error) {
	callID, err := id.ParseCallID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	groupID, err := id.ParseOptional(d.GroupID, id.PrefixGroup)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", d.ID, err)
	}
	scheduleID, err := id.ParseOptional(d.ScheduleID, id.PrefixSchedule)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", d.ID, err)
	}

	r := &Request{
		ID:           callID,
		Name:         d.Name,
		Args:         append([]json.RawMessage(nil), d.Args...),
		Resources:    resource.NewMap(),
		Dependencies: make(Dependencies, len(d.Dependencies)),
		GroupID:      groupID,
		Asynchronous: d.Asynchronous,
		Tags:         append([]string(nil), d.Tags...),
		Queue:        d.Queue,
		Timeout:      d.Timeout,
		MaxRetries:   d.MaxRetries,
		ScheduleID:   scheduleID,
	}
	if r.Queue == "" {
		r.Queue = DefaultQueue
	}
	if len(d.Kwargs) > 0 {
		r.Kwargs = make(map[string]json.RawMessage, len(d.Kwargs))
		for k, v := range d.Kwargs {
			r.Kwargs[k] = v
		}
	}
	for opName, byType := range d.Resources {
		op, err := resource.ParseOperation(opName)
		if err != nil {
			return nil, fmt.Errorf("descriptor %s: %w", d.ID, err)
		}
		for typ, ids := range byType {
			r.Resources.Add(op, typ, ids...)
		}
	}
	for dep, ss := range d.Dependencies {
		states := make([]State, len(ss))
		for i, s := range ss {
			states[i] = State(s)
		}
		r.Dependencies[dep] = states
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	return r, nil
}
