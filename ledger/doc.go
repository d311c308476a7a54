// Package ledger tracks which in-flight calls hold which resources.
//
// Every non-rejected call registers one [resource.Claim] per declared
// (type, id, operation) tuple. Before a new call is queued, [Ledger.FindConflicts]
// compares its proposed operations against every existing claim on the same
// resources using the conflict matrix, and answers with a single response:
//
//   - Rejected if any existing claim rejects the proposal
//   - Postponed if any existing claim postpones it
//   - Accepted otherwise
//
// Claims are removed when the owning call reaches a terminal state.
package ledger
