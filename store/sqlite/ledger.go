package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// InsertClaims persists claims with one multi-row INSERT, which SQLite
// applies atomically.
func (s *Store) InsertClaims(ctx context.Context, claims []*resource.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]string, len(claims))
	args := make([]any, 0, len(claims)*5)
	for i, c := range claims {
		rows[i] = "(?, ?, ?, ?, ?)"
		args = append(args, c.CallID.String(), c.ResourceType, c.ResourceID, string(c.Operation), now)
	}

	query := fmt.Sprintf(`
		INSERT INTO conductor_claims (call_id, resource_type, resource_id, operation, created_at)
		VALUES %s
		RETURNING *`,
		strings.Join(rows, ", "),
	)

	var inserted []claimModel
	if err := s.sdb.NewRaw(query, args...).Scan(ctx, &inserted); err != nil {
		return fmt.Errorf("conductor/sqlite: insert claims: %w", err)
	}
	return nil
}

// FindClaims returns every claim on any of keys, in insertion order. All
// keys are matched with one row-value IN over a VALUES list.
func (s *Store) FindClaims(ctx context.Context, keys []resource.Key) ([]*resource.Claim, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows := make([]string, len(keys))
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		rows[i] = "(?, ?)"
		args = append(args, k.Type, k.ID)
	}

	query := fmt.Sprintf(`
		SELECT * FROM conductor_claims
		WHERE (resource_type, resource_id) IN (VALUES %s)
		ORDER BY seq ASC`,
		strings.Join(rows, ", "),
	)

	var models []claimModel
	if err := s.sdb.NewRaw(query, args...).Scan(ctx, &models); err != nil {
		return nil, fmt.Errorf("conductor/sqlite: find claims: %w", err)
	}
	return fromClaimModels(models)
}

// ListClaims returns every claim held by callID.
func (s *Store) ListClaims(ctx context.Context, callID id.CallID) ([]*resource.Claim, error) {
	var models []claimModel
	err := s.sdb.NewSelect(&models).
		Where("call_id = ?", callID.String()).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("conductor/sqlite: list claims: %w", err)
	}
	return fromClaimModels(models)
}

// RemoveClaims deletes every claim held by callID.
func (s *Store) RemoveClaims(ctx context.Context, callID id.CallID) error {
	_, err := s.sdb.NewDelete((*claimModel)(nil)).
		Where("call_id = ?", callID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: remove claims: %w", err)
	}
	return nil
}

// ClearClaims deletes every claim.
func (s *Store) ClearClaims(ctx context.Context) error {
	_, err := s.sdb.NewDelete((*claimModel)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: clear claims: %w", err)
	}
	return nil
}
