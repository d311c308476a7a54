package resource

import (
	"sort"

	"github.com/xraph/conductor/id"
)

// Map is the declared resource needs of a call:
// operation → resource type → resource ids.
type Map map[Operation]map[string][]string

// NewMap returns an empty Map.
func NewMap() Map {
	return make(Map)
}

// Add records ids of the given type under op. Duplicate ids are ignored.
func (m Map) Add(op Operation, resourceType string, ids ...string) Map {
	byType, ok := m[op]
	if !ok {
		byType = make(map[string][]string)
		m[op] = byType
	}
	existing := byType[resourceType]
	for _, rid := range ids {
		if !contains(existing, rid) {
			existing = append(existing, rid)
		}
	}
	byType[resourceType] = existing
	return m
}

// Len returns the number of (type, id, operation) tuples in the map.
func (m Map) Len() int {
	n := 0
	for _, byType := range m {
		for _, ids := range byType {
			n += len(ids)
		}
	}
	return n
}

// Clone returns a deep copy of the map.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for op, byType := range m {
		cp := make(map[string][]string, len(byType))
		for typ, ids := range byType {
			cp[typ] = append([]string(nil), ids...)
		}
		out[op] = cp
	}
	return out
}

// Flatten expands the map into one claim per (type, id, operation) tuple,
// owned by callID. The result is ordered by operation, type, then id.
// callID may be Nil when the owning call is not known yet.
func (m Map) Flatten(callID id.CallID) []*Claim {
	claims := make([]*Claim, 0, m.Len())
	for op, byType := range m {
		for typ, ids := range byType {
			for _, rid := range ids {
				claims = append(claims, &Claim{
					CallID:       callID,
					ResourceType: typ,
					ResourceID:   rid,
					Operation:    op,
				})
			}
		}
	}
	sort.Slice(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if a.Operation != b.Operation {
			return a.Operation.rank() < b.Operation.rank()
		}
		if a.ResourceType != b.ResourceType {
			return a.ResourceType < b.ResourceType
		}
		return a.ResourceID < b.ResourceID
	})
	return claims
}

// Proposed indexes the map by resource key. A key declared under more than
// one operation maps to all of them, in matrix order.
func (m Map) Proposed() map[Key][]Operation {
	out := make(map[Key][]Operation)
	for _, c := range m.Flatten(id.Nil) {
		k := c.Key()
		out[k] = append(out[k], c.Operation)
	}
	return out
}

// Keys returns the distinct resource keys in the map, sorted.
func (m Map) Keys() []Key {
	proposed := m.Proposed()
	keys := make([]Key, 0, len(proposed))
	for k := range proposed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
