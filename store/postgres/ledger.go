package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

const insertClaimSQL = `
	INSERT INTO conductor_claims (call_id, resource_type, resource_id, operation)
	VALUES ($1, $2, $3, $4)`

// InsertClaims persists claims in one transaction. Rows are inserted in
// slice order so the serial column preserves insertion order.
func (s *Store) InsertClaims(ctx context.Context, claims []*resource.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range claims {
			batch.Queue(insertClaimSQL, c.CallID.String(), c.ResourceType, c.ResourceID, string(c.Operation))
		}
		br := tx.SendBatch(ctx, batch)
		for range claims {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return err
			}
		}
		return br.Close()
	})
	if err != nil {
		return fmt.Errorf("conductor/postgres: insert claims: %w", err)
	}
	return nil
}

// FindClaims returns every claim on any of keys, in insertion order. The
// keys are sent as two parallel arrays and joined with unnest, so the whole
// resource map resolves in a single round trip.
func (s *Store) FindClaims(ctx context.Context, keys []resource.Key) ([]*resource.Claim, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	types := make([]string, len(keys))
	ids := make([]string, len(keys))
	for i, k := range keys {
		types[i] = k.Type
		ids[i] = k.ID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.call_id, c.resource_type, c.resource_id, c.operation
		FROM conductor_claims c
		JOIN (SELECT DISTINCT * FROM unnest($1::text[], $2::text[])) AS k(resource_type, resource_id)
		  ON c.resource_type = k.resource_type AND c.resource_id = k.resource_id
		ORDER BY c.seq ASC`,
		types, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("conductor/postgres: find claims: %w", err)
	}
	return collectClaims(rows)
}

// ListClaims returns every claim held by callID.
func (s *Store) ListClaims(ctx context.Context, callID id.CallID) ([]*resource.Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT call_id, resource_type, resource_id, operation
		FROM conductor_claims
		WHERE call_id = $1
		ORDER BY seq ASC`,
		callID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("conductor/postgres: list claims: %w", err)
	}
	return collectClaims(rows)
}

// RemoveClaims deletes every claim held by callID.
func (s *Store) RemoveClaims(ctx context.Context, callID id.CallID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conductor_claims WHERE call_id = $1`, callID.String())
	if err != nil {
		return fmt.Errorf("conductor/postgres: remove claims: %w", err)
	}
	return nil
}

// ClearClaims deletes every claim.
func (s *Store) ClearClaims(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conductor_claims`)
	if err != nil {
		return fmt.Errorf("conductor/postgres: clear claims: %w", err)
	}
	return nil
}

func scanClaim(row pgx.Row) (*resource.Claim, error) {
	var (
		c       resource.Claim
		callStr string
		opStr   string
	)
	if err := row.Scan(&callStr, &c.ResourceType, &c.ResourceID, &opStr); err != nil {
		return nil, err
	}
	callID, err := id.ParseCallID(callStr)
	if err != nil {
		return nil, fmt.Errorf("conductor/postgres: parse call id %q: %w", callStr, err)
	}
	c.CallID = callID
	c.Operation = resource.Operation(opStr)
	return &c, nil
}

// collectClaims collects all claims from query rows.
func collectClaims(rows pgx.Rows) ([]*resource.Claim, error) {
	defer rows.Close()

	var claims []*resource.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("conductor/postgres: scan claim row: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conductor/postgres: iterate claim rows: %w", err)
	}
	return claims, nil
}
