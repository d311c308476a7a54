package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// InsertClaims persists claims. A contiguous range of sequence numbers is
// reserved first so the documents sort in slice order.
func (s *Store) InsertClaims(ctx context.Context, claims []*resource.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	first, err := s.reserveSeq(ctx, len(claims))
	if err != nil {
		return fmt.Errorf("conductor/mongo: insert claims: %w", err)
	}

	t := now()
	docs := make([]any, len(claims))
	for i, c := range claims {
		docs[i] = &claimModel{
			Seq:          first + int64(i),
			CallID:       c.CallID.String(),
			ResourceType: c.ResourceType,
			ResourceID:   c.ResourceID,
			Operation:    string(c.Operation),
			CreatedAt:    t,
		}
	}
	if _, err := s.mdb.Collection(colClaims).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("conductor/mongo: insert claims: %w", err)
	}
	return nil
}

// reserveSeq atomically advances the claim counter by n and returns the
// first reserved value.
func (s *Store) reserveSeq(ctx context.Context, n int) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": colClaims},
		bson.M{"$inc": bson.M{"seq": int64(n)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("reserve sequence: %w", err)
	}
	return counter.Seq - int64(n) + 1, nil
}

// FindClaims returns every claim on any of keys, in insertion order, with a
// single $or query.
func (s *Store) FindClaims(ctx context.Context, keys []resource.Key) ([]*resource.Claim, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	or := make([]bson.M, len(keys))
	for i, k := range keys {
		or[i] = bson.M{"resource_type": k.Type, "resource_id": k.ID}
	}
	return s.findClaims(ctx, bson.M{"$or": or}, "find claims")
}

// ListClaims returns every claim held by callID.
func (s *Store) ListClaims(ctx context.Context, callID id.CallID) ([]*resource.Claim, error) {
	return s.findClaims(ctx, bson.M{"call_id": callID.String()}, "list claims")
}

func (s *Store) findClaims(ctx context.Context, filter bson.M, op string) ([]*resource.Claim, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.mdb.Collection(colClaims).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("conductor/mongo: %s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var models []claimModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("conductor/mongo: %s decode: %w", op, err)
	}
	return fromClaimModels(models)
}

// RemoveClaims deletes every claim held by callID.
func (s *Store) RemoveClaims(ctx context.Context, callID id.CallID) error {
	_, err := s.mdb.Collection(colClaims).DeleteMany(ctx, bson.M{"call_id": callID.String()})
	if err != nil {
		return fmt.Errorf("conductor/mongo: remove claims: %w", err)
	}
	return nil
}

// ClearClaims deletes every claim.
func (s *Store) ClearClaims(ctx context.Context) error {
	_, err := s.mdb.Collection(colClaims).DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("conductor/mongo: clear claims: %w", err)
	}
	return nil
}
