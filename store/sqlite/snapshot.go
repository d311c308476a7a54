package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/snapshot"
)

// SaveQueuedCall upserts a queued call.
func (s *Store) SaveQueuedCall(ctx context.Context, qc *snapshot.QueuedCall) error {
	_, err := s.sdb.NewInsert(toQueuedCallModel(qc)).
		OnConflict("(call_id) DO UPDATE").
		Set("group_id = EXCLUDED.group_id").
		Set("codec = EXCLUDED.codec").
		Set("descriptor = EXCLUDED.descriptor").
		Set("enqueued_at = EXCLUDED.enqueued_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: save queued call: %w", err)
	}
	return nil
}

// DeleteQueuedCall removes the entry for callID if present.
func (s *Store) DeleteQueuedCall(ctx context.Context, callID id.CallID) error {
	_, err := s.sdb.NewDelete((*queuedCallModel)(nil)).
		Where("call_id = ?", callID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: delete queued call: %w", err)
	}
	return nil
}

// ListQueuedCalls returns every entry ordered by enqueue time.
func (s *Store) ListQueuedCalls(ctx context.Context) ([]*snapshot.QueuedCall, error) {
	var models []queuedCallModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("enqueued_at ASC, call_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("conductor/sqlite: list queued calls: %w", err)
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
	_, err := s.sdb.NewDelete((*queuedCallModel)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: clear queued calls: %w", err)
	}
	return nil
}
