// Package sqlite implements store.Store using the grove ORM with SQLite
// dialect. Suitable for single-process deployments and CLI tools that need
// claims and queued calls to survive a restart.
//
// The caller owns the *grove.DB lifecycle -- sqlite never closes it. Pass the
// db handle through the constructor:
//
//	import (
//	    "github.com/xraph/grove"
//	    "github.com/xraph/conductor/store/sqlite"
//	)
//
//	db, _ := grove.Open(ctx, "sqlite", dsn)
//	store := sqlite.New(db)
//	store.Migrate(ctx)
package sqlite
