package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/snapshot"
)

// SaveQueuedCall upserts a queued call.
func (s *Store) SaveQueuedCall(ctx context.Context, qc *snapshot.QueuedCall) error {
	m := toQueuedCallModel(qc)
	_, err := s.mdb.Collection(colQueuedCalls).ReplaceOne(ctx,
		bson.M{"_id": m.CallID},
		m,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("conductor/mongo: save queued call: %w", err)
	}
	return nil
}

// DeleteQueuedCall removes the entry for callID if present.
func (s *Store) DeleteQueuedCall(ctx context.Context, callID id.CallID) error {
	_, err := s.mdb.Collection(colQueuedCalls).DeleteOne(ctx, bson.M{"_id": callID.String()})
	if err != nil {
		return fmt.Errorf("conductor/mongo: delete queued call: %w", err)
	}
	return nil
}

// ListQueuedCalls returns every entry ordered by enqueue time.
func (s *Store) ListQueuedCalls(ctx context.Context) ([]*snapshot.QueuedCall, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "enqueued_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := s.mdb.Collection(colQueuedCalls).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("conductor/mongo: list queued calls: %w", err)
	}
	defer cursor.Close(ctx)

	var models []queuedCallModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("conductor/mongo: list queued calls decode: %w", err)
	}

	result := make([]*snapshot.QueuedCall, 0, len(models))
	for i := range models {
		qc, convErr := fromQueuedCallModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		result = append(result, qc)
	}
	return result, nil
}

// ClearQueuedCalls removes every entry.
func (s *Store) ClearQueuedCalls(ctx context.Context) error {
	_, err := s.mdb.Collection(colQueuedCalls).DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("conductor/mongo: clear queued calls: %w", err)
	}
	return nil
}
