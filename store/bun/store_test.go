//go:build integration

package bunstore_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
	"github.com/xraph/conductor/store"
	bunstore "github.com/xraph/conductor/store/bun"
	"github.com/xraph/conductor/store/storetest"
)

// setupTestStore creates a Postgres container and returns a connected Bun Store.
func setupTestStore(t *testing.T) *bunstore.Store {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("conductor_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	// Create Bun DB from pgdriver.
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	db := bun.NewDB(sqldb, pgdialect.New())

	t.Cleanup(func() {
		_ = db.Close()
	})

	s := bunstore.New(db, bunstore.WithLogger(slog.Default()))

	if migErr := s.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}

	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return setupTestStore(t) })
}

func TestFindClaims_MixedOperations(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	reader, writer := id.NewCallID(), id.NewCallID()
	if err := s.InsertClaims(ctx, []*resource.Claim{
		storetest.Claim(reader, "repository", "r1", resource.Read),
		storetest.Claim(writer, "repository", "r1", resource.Update),
		storetest.Claim(writer, "distribution", "d1", resource.Update),
	}); err != nil {
		t.Fatalf("InsertClaims: %v", err)
	}

	found, err := s.FindClaims(ctx, []resource.Key{
		{Type: "repository", ID: "r1"},
		{Type: "distribution", ID: "d1"},
	})
	if err != nil {
		t.Fatalf("FindClaims: %v", err)
	}
	want := []resource.Operation{resource.Read, resource.Update, resource.Update}
	if len(found) != len(want) {
		t.Fatalf("FindClaims returned %d claims, want %d", len(found), len(want))
	}
	for i, op := range want {
		if found[i].Operation != op {
			t.Errorf("claim %d operation = %q, want %q", i, found[i].Operation, op)
		}
	}
}
