package ledger

import (
	"context"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// Store defines the persistence contract for resource claims.
type Store interface {
	// InsertClaims atomically persists claims for one or more calls.
	InsertClaims(ctx context.Context, claims []*resource.Claim) error

	// FindClaims returns every claim whose resource matches any of the given
	// keys, in insertion order. Implementations must resolve all keys with a
	// single batched lookup.
	FindClaims(ctx context.Context, keys []resource.Key) ([]*resource.Claim, error)

	// ListClaims returns every claim held by the given call.
	ListClaims(ctx context.Context, callID id.CallID) ([]*resource.Claim, error)

	// RemoveClaims deletes all claims held by the given call. Removing the
	// claims of a call that holds none is not an error.
	RemoveClaims(ctx context.Context, callID id.CallID) error

	// ClearClaims deletes every claim in the ledger.
	ClearClaims(ctx context.Context) error
}
