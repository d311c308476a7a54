package resource

import (
	"fmt"

	"github.com/xraph/conductor/id"
)

// Key identifies a single resource.
type Key struct {
	Type string `json:"resource_type"`
	ID   string `json:"resource_id"`
}

// String returns "type:id".
func (k Key) String() string { return fmt.Sprintf("%s:%s", k.Type, k.ID) }

// Claim records one resource operation held by one in-flight call.
type Claim struct {
	CallID       id.CallID `json:"call_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Operation    Operation `json:"operation"`
}

// Key returns the resource the claim refers to.
func (c *Claim) Key() Key {
	return Key{Type: c.ResourceType, ID: c.ResourceID}
}

// Reason returns the blocking descriptor for this claim.
func (c *Claim) Reason() Reason {
	return Reason{ResourceType: c.ResourceType, ResourceID: c.ResourceID, Operation: c.Operation}
}

// Reason describes an existing claim that postpones or rejects a call.
type Reason struct {
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Operation    Operation `json:"operation"`
}

// ReasonSet is an insertion-ordered set of reasons. The first occurrence
// of a reason wins.
type ReasonSet struct {
	seen map[Reason]struct{}
	list []Reason
}

// Add inserts r if it is not already present and reports whether it was added.
func (s *ReasonSet) Add(r Reason) bool {
	if s.seen == nil {
		s.seen = make(map[Reason]struct{})
	}
	if _, ok := s.seen[r]; ok {
		return false
	}
	s.seen[r] = struct{}{}
	s.list = append(s.list, r)
	return true
}

// Len returns the number of reasons in the set.
func (s *ReasonSet) Len() int { return len(s.list) }

// List returns the reasons in insertion order.
func (s *ReasonSet) List() []Reason {
	return append([]Reason(nil), s.list...)
}
