package resource

// matrix[existing][proposed] is the response for a proposed operation when
// another call already holds existing on the same resource.
var matrix = map[Operation]map[Operation]Response{
	Create: {
		Create: Accepted,
		Read:   Postponed,
		Update: Postponed,
		Delete: Postponed,
	},
	Read: {
		Create: Postponed,
		Read:   Accepted,
		Update: Accepted,
		Delete: Rejected,
	},
	Update: {
		Create: Postponed,
		Read:   Accepted,
		Update: Accepted,
		Delete: Rejected,
	},
	Delete: {
		Create: Postponed,
		Read:   Rejected,
		Update: Rejected,
		Delete: Rejected,
	},
}

// Resolve returns the matrix response for a proposed operation against an
// operation already held on the same resource. Unknown operations resolve
// to Rejected.
func Resolve(existing, proposed Operation) Response {
	row, ok := matrix[existing]
	if !ok {
		return Rejected
	}
	r, ok := row[proposed]
	if !ok {
		return Rejected
	}
	return r
}

// PostponingOperations returns the existing operations that postpone a
// call proposing the given operation.
func PostponingOperations(proposed Operation) []Operation {
	return existingWith(proposed, Postponed)
}

// RejectingOperations returns the existing operations that reject a call
// proposing the given operation.
func RejectingOperations(proposed Operation) []Operation {
	return existingWith(proposed, Rejected)
}

func existingWith(proposed Operation, want Response) []Operation {
	var ops []Operation
	for _, existing := range Operations {
		if Resolve(existing, proposed) == want {
			ops = append(ops, existing)
		}
	}
	return ops
}
