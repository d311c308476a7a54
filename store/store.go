package store

import (
	"context"

	"github.com/xraph/conductor/ledger"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/snapshot"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, bun, sqlite, etc.) implements all of them.
type Store interface {
	ledger.Store
	snapshot.Store
	schedule.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
