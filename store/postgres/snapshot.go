package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/snapshot"
)

// SaveQueuedCall upserts a queued call.
func (s *Store) SaveQueuedCall(ctx context.Context, qc *snapshot.QueuedCall) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conductor_queued_calls (call_id, group_id, codec, descriptor, enqueued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (call_id) DO UPDATE SET
			group_id = EXCLUDED.group_id,
			codec = EXCLUDED.codec,
			descriptor = EXCLUDED.descriptor,
			enqueued_at = EXCLUDED.enqueued_at`,
		qc.CallID.String(), qc.GroupID.String(), qc.Codec, qc.Descriptor, qc.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("conductor/postgres: save queued call: %w", err)
	}
	return nil
}

// DeleteQueuedCall removes the entry for callID if present.
func (s *Store) DeleteQueuedCall(ctx context.Context, callID id.CallID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conductor_queued_calls WHERE call_id = $1`, callID.String())
	if err != nil {
		return fmt.Errorf("conductor/postgres: delete queued call: %w", err)
	}
	return nil
}

// ListQueuedCalls returns every entry ordered by enqueue time.
func (s *Store) ListQueuedCalls(ctx context.Context) ([]*snapshot.QueuedCall, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT call_id, group_id, codec, descriptor, enqueued_at
		FROM conductor_queued_calls
		ORDER BY enqueued_at ASC, call_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("conductor/postgres: list queued calls: %w", err)
	}
	defer rows.Close()

	var result []*snapshot.QueuedCall
	for rows.Next() {
		qc, scanErr := scanQueuedCall(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("conductor/postgres: scan queued call row: %w", scanErr)
		}
		result = append(result, qc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("conductor/postgres: iterate queued call rows: %w", err)
	}
	return result, nil
}

// ClearQueuedCalls removes every entry.
func (s *Store) ClearQueuedCalls(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conductor_queued_calls`)
	if err != nil {
		return fmt.Errorf("conductor/postgres: clear queued calls: %w", err)
	}
	return nil
}

func scanQueuedCall(row pgx.Row) (*snapshot.QueuedCall, error) {
	var (
		qc       snapshot.QueuedCall
		callStr  string
		groupStr string
	)
	if err := row.Scan(&callStr, &groupStr, &qc.Codec, &qc.Descriptor, &qc.EnqueuedAt); err != nil {
		return nil, err
	}
	callID, err := id.ParseCallID(callStr)
	if err != nil {
		return nil, fmt.Errorf("parse call id %q: %w", callStr, err)
	}
	groupID, err := id.ParseOptional(groupStr, id.PrefixGroup)
	if err != nil {
		return nil, fmt.Errorf("parse group id %q: %w", groupStr, err)
	}
	qc.CallID = callID
	qc.GroupID = groupID
	qc.EnqueuedAt = qc.EnqueuedAt.UTC()
	return &qc, nil
}
