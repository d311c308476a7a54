// Package mongo implements store.Store using the grove ORM with the MongoDB
// driver. Claims carry a sequence number allocated from a counter document
// so conflict reasons come back in insertion order.
//
// The caller owns the *grove.DB lifecycle -- mongo never closes it:
//
//	import (
//	    "github.com/xraph/grove"
//	    "github.com/xraph/conductor/store/mongo"
//	)
//
//	db, _ := grove.Open(ctx, "mongo", dsn)
//	store := mongo.New(db)
//	store.Migrate(ctx)
package mongo
