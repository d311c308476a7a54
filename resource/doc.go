// Package resource defines resource operations, the conflict matrix that
// decides how two operations on the same resource interact, and the claim
// records the ledger persists.
//
// A call declares its resource needs as a [Map]:
//
//	m := resource.NewMap().
//	    Add(resource.Update, "repository", "repo-1").
//	    Add(resource.Read, "content_unit", "cu-1", "cu-2")
//
// The map is flattened into one [Claim] per (type, id, operation) tuple
// before it touches the ledger.
//
// # Conflict Matrix
//
//	existing \ proposed  CREATE     READ       UPDATE     DELETE
//	CREATE               accepted   postponed  postponed  postponed
//	READ                 postponed  accepted   accepted   rejected
//	UPDATE               postponed  accepted   accepted   rejected
//	DELETE               postponed  rejected   rejected   rejected
package resource
