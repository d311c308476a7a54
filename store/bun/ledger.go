package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// InsertClaims persists claims with one multi-row insert.
func (s *Store) InsertClaims(ctx context.Context, claims []*resource.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	models := make([]claimModel, len(claims))
	for i, c := range claims {
		models[i] = toClaimModel(c)
	}
	if _, err := s.db.NewInsert().Model(&models).Exec(ctx); err != nil {
		return fmt.Errorf("conductor/bun: insert claims: %w", err)
	}
	return nil
}

// FindClaims returns every claim on any of keys, in insertion order, using a
// single row-value IN lookup.
func (s *Store) FindClaims(ctx context.Context, keys []resource.Key) ([]*resource.Claim, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pairs := make([][]string, len(keys))
	for i, k := range keys {
		pairs[i] = []string{k.Type, k.ID}
	}

	var models []claimModel
	err := s.db.NewSelect().Model(&models).
		Where("(resource_type, resource_id) IN (?)", bun.In(pairs)).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("conductor/bun: find claims: %w", err)
	}
	return fromClaimModels(models)
}

// ListClaims returns every claim held by callID.
func (s *Store) ListClaims(ctx context.Context, callID id.CallID) ([]*resource.Claim, error) {
	var models []claimModel
	err := s.db.NewSelect().Model(&models).
		Where("call_id = ?", callID.String()).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("conductor/bun: list claims: %w", err)
	}
	return fromClaimModels(models)
}

// RemoveClaims deletes every claim held by callID.
func (s *Store) RemoveClaims(ctx context.Context, callID id.CallID) error {
	_, err := s.db.NewDelete().Model((*claimModel)(nil)).
		Where("call_id = ?", callID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/bun: remove claims: %w", err)
	}
	return nil
}

// ClearClaims deletes every claim.
func (s *Store) ClearClaims(ctx context.Context) error {
	_, err := s.db.NewDelete().Model((*claimModel)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/bun: clear claims: %w", err)
	}
	return nil
}
