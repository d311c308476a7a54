package call

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
)

// Criteria filters call reports. Zero-valued fields match everything; set
// fields must all match.
type Criteria struct {
	// CallID matches a single call.
	CallID id.CallID
	// CallIDs matches any of the listed calls.
	CallIDs []id.CallID
	// GroupID matches calls submitted together.
	GroupID id.GroupID
	// ScheduleID matches calls fired by a schedule.
	ScheduleID id.ScheduleID
	// States matches any of the listed states.
	States []State
	// Name matches the callable name.
	Name string
	// Args must all appear among the positional arguments.
	Args []json.RawMessage
	// Kwargs must all appear, with equal values, among the keyword arguments.
	Kwargs map[string]json.RawMessage
	// Tags must all appear among the call's tags.
	Tags []string
}

// Criteria keys accepted by ParseCriteria.
const (
	CriterionCallID     = "call_id"
	CriterionCallIDs    = "call_ids"
	CriterionGroupID    = "group_id"
	CriterionScheduleID = "schedule_id"
	CriterionState      = "state"
	CriterionStates     = "states"
	CriterionName       = "name"
	CriterionArgs       = "args"
	CriterionKwargs     = "kwargs"
	CriterionTags       = "tags"
)

// Match reports whether the call described by req and rep satisfies c.
func (c *Criteria) Match(req *Request, rep *Report) bool {
	if !c.CallID.IsNil() && c.CallID.String() != req.ID.String() {
		return false
	}
	if len(c.CallIDs) > 0 && !containsID(c.CallIDs, req.ID) {
		return false
	}
	if !c.GroupID.IsNil() && c.GroupID.String() != req.GroupID.String() {
		return false
	}
	if !c.ScheduleID.IsNil() && c.ScheduleID.String() != req.ScheduleID.String() {
		return false
	}
	if len(c.States) > 0 && !containsState(c.States, rep.State) {
		return false
	}
	if c.Name != "" && c.Name != req.Name {
		return false
	}
	for _, want := range c.Args {
		if !containsRaw(req.Args, want) {
			return false
		}
	}
	for k, want := range c.Kwargs {
		got, ok := req.Kwargs[k]
		if !ok || !rawEqual(got, want) {
			return false
		}
	}
	for _, tag := range c.Tags {
		if !containsString(req.Tags, tag) {
			return false
		}
	}
	return true
}

// ParseCriteria builds Criteria from loosely typed key/value pairs. Unknown
// keys fail with conductor.ErrUnrecognizedSearchCriteria.
func ParseCriteria(m map[string]any) (Criteria, error) {
	var unknown []string
	for k := range m {
		switch k {
		case CriterionCallID, CriterionCallIDs, CriterionGroupID, CriterionScheduleID,
			CriterionState, CriterionStates, CriterionName, CriterionArgs,
			CriterionKwargs, CriterionTags:
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Criteria{}, fmt.Errorf("%w: %s", conductor.ErrUnrecognizedSearchCriteria, strings.Join(unknown, ", "))
	}

	var (
		c   Criteria
		err error
	)
	if v, ok := m[CriterionCallID]; ok {
		if c.CallID, err = parseID(v, id.PrefixCall); err != nil {
			return Criteria{}, fmt.Errorf("criteria %s: %w", CriterionCallID, err)
		}
	}
	if v, ok := m[CriterionCallIDs]; ok {
		list, err := toList(v)
		if err != nil {
			return Criteria{}, fmt.Errorf("criteria %s: %w", CriterionCallIDs, err)
		}
		for _, item := range list {
			cid, err := parseID(item, id.PrefixCall)
			if err != nil {
				return Criteria{}, fmt.Errorf("criteria %s: %w", CriterionCallIDs, err)
			}
			c.CallIDs = append(c.CallIDs, cid)
		}
	}
	if v, ok := m[CriterionGroupID]; ok {
		if c.GroupID, err = parseID(v, id.PrefixGroup); err != nil {
			return Criteria{}, fmt.Errorf("criteria %s: %w", CriterionGroupID, err)
		}
	}
	if v, ok := m[CriterionScheduleID]; ok {
		if c.ScheduleID, err = parseID(v, id.PrefixSchedule); err != nil {
			return Criteria{}, fmt.Errorf("criteria %s: %w", CriterionScheduleID, err)
		}
	}
	for _, key := range []string{CriterionState, CriterionStates} {
		v, ok := m[key]
		if !ok {
			continue
		}
		list, err := toList(v)
		if err != nil {
			return Criteria{}, fmt.Errorf("criteria %s: %w", key, err)
		}
		for _, item := range list {
			s, err := parseState(item)
			if err != nil {
				return Criteria{}, fmt.Errorf("criteria %s: %w", key, err)
			}
			c.States = append(c.States, s)
		}
	}
	if v, ok := m[CriterionName]; ok {
		s, ok := v.(string)
		if !ok {
			return Criteria{}, fmt.Errorf("criteria %s: expected string, got %T", CriterionName, v)
		}
		c.Name = s
	}
	if v, ok := m[CriterionArgs]; ok {
		list, err := toList(v)
		if err != nil {
			return Criteria{}, fmt.Errorf("criteria %s: %w", CriterionArgs, err)
		}
		for i, item := range list {
			raw, err := json.Marshal(item)
			if err != nil {
				return Criteria{}, fmt.Errorf("criteria %s[%d]: %w", CriterionArgs, i, err)
			}
			c.Args = append(c.Args, raw)
		}
	}
	if v, ok := m[CriterionKwargs]; ok {
		kw, ok := v.(map[string]any)
		if !ok {
			return Criteria{}, fmt.Errorf("criteria %s: expected map[string]any, got %T", CriterionKwargs, v)
		}
		c.Kwargs = make(map[string]json.RawMessage, len(kw))
		for k, item := range kw {
			raw, err := json.Marshal(item)
			if err != nil {
				return Criteria{}, fmt.Errorf("criteria %s[%q]: %w", CriterionKwargs, k, err)
			}
			c.Kwargs[k] = raw
		}
	}
	if v, ok := m[CriterionTags]; ok {
		list, err := toList(v)
		if err != nil {
			return Criteria{}, fmt.Errorf("criteria %s: %w", CriterionTags, err)
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return Criteria{}, fmt.Errorf("criteria %s: expected string, got %T", CriterionTags, item)
			}
			c.Tags = append(c.Tags, s)
		}
	}
	return c, nil
}

func parseID(v any, prefix id.Prefix) (id.ID, error) {
	switch x := v.(type) {
	case id.ID:
		return x, nil
	case string:
		return id.ParseWithPrefix(x, prefix)
	case fmt.Stringer:
		return id.ParseWithPrefix(x.String(), prefix)
	}
	return id.Nil, fmt.Errorf("expected id or string, got %T", v)
}

func parseState(v any) (State, error) {
	var s State
	switch x := v.(type) {
	case State:
		s = x
	case string:
		s = State(x)
	default:
		return "", fmt.Errorf("expected state, got %T", v)
	}
	if !s.Valid() {
		return "", fmt.Errorf("unknown state %q", s)
	}
	return s, nil
}

func toList(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case []id.ID:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case []State:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case string, State, id.ID:
		return []any{x}, nil
	}
	return nil, fmt.Errorf("expected list, got %T", v)
}

func containsID(ids []id.CallID, target id.CallID) bool {
	for _, i := range ids {
		if i.String() == target.String() {
			return true
		}
	}
	return false
}

func containsState(states []State, target State) bool {
	for _, s := range states {
		if s == target {
			return true
		}
	}
	return false
}

func containsString(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}

func containsRaw(list []json.RawMessage, target json.RawMessage) bool {
	for _, raw := range list {
		if rawEqual(raw, target) {
			return true
		}
	}
	return false
}

// rawEqual compares two JSON values independent of formatting and object
// key order.
func rawEqual(a, b json.RawMessage) bool {
	return bytes.Equal(canonical(a), canonical(b))
}

func canonical(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}
