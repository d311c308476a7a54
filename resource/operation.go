package resource

import "fmt"

// Operation is an action a call performs on a resource.
type Operation string

const (
	// Create brings a resource into existence.
	Create Operation = "create"
	// Read observes a resource.
	Read Operation = "read"
	// Update modifies an existing resource.
	Update Operation = "update"
	// Delete removes a resource.
	Delete Operation = "delete"
)

// Operations lists every operation in matrix order.
var Operations = []Operation{Create, Read, Update, Delete}

// Valid reports whether o is one of the four known operations.
func (o Operation) Valid() bool {
	switch o {
	case Create, Read, Update, Delete:
		return true
	}
	return false
}

// ParseOperation converts a string into an Operation.
func ParseOperation(s string) (Operation, error) {
	o := Operation(s)
	if !o.Valid() {
		return "", fmt.Errorf("resource: unknown operation %q", s)
	}
	return o, nil
}

// rank orders operations for deterministic flattening.
func (o Operation) rank() int {
	for i, op := range Operations {
		if op == o {
			return i
		}
	}
	return len(Operations)
}

// Response is the outcome of a conflict check.
type Response string

const (
	// Accepted means the call may be queued without waiting on anyone.
	Accepted Response = "accepted"
	// Postponed means the call is queued behind the calls blocking it.
	Postponed Response = "postponed"
	// Rejected means the call must not run at all.
	Rejected Response = "rejected"
)
