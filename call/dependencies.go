package call

import (
	"sort"

	"github.com/xraph/conductor/id"
)

// Dependencies maps a call id to the terminal states it must finish in
// before the dependent call may start. An empty state list accepts any
// terminal state.
type Dependencies map[string][]State

// Add records a dependency on callID. An existing entry is kept as is, so
// dependencies only ever grow.
func (d Dependencies) Add(callID id.CallID, states ...State) {
	k := callID.String()
	if _, ok := d[k]; ok {
		return
	}
	d[k] = append([]State(nil), states...)
}

// Has reports whether callID is a dependency.
func (d Dependencies) Has(callID string) bool {
	_, ok := d[callID]
	return ok
}

// Satisfied reports whether a dependency that finished in state satisfies
// the requirement registered for callID.
func (d Dependencies) Satisfied(callID string, state State) bool {
	if !state.Terminal() {
		return false
	}
	required, ok := d[callID]
	if !ok || len(required) == 0 {
		return true
	}
	for _, s := range required {
		if s == state {
			return true
		}
	}
	return false
}

// IDs returns the dependency call ids, sorted.
func (d Dependencies) IDs() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (d Dependencies) Clone() Dependencies {
	if d == nil {
		return nil
	}
	out := make(Dependencies, len(d))
	for k, v := range d {
		out[k] = append([]State(nil), v...)
	}
	return out
}
