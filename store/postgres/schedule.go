package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/schedule"
)

const scheduleColumns = `
	id, name, spec, call_name, args, kwargs, resources, tags,
	queue, enabled, last_run_at, next_run_at, created_at, updated_at`

// RegisterSchedule persists a new schedule entry. Returns
// conductor.ErrDuplicateSchedule if the name already exists.
func (s *Store) RegisterSchedule(ctx context.Context, e *schedule.Entry) error {
	args, kwargs, resources, tags, err := encodeSchedule(e)
	if err != nil {
		return fmt.Errorf("conductor/postgres: register schedule: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO conductor_schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID.String(), e.Name, e.Spec, e.CallName, args, kwargs, resources, tags,
		e.Queue, e.Enabled, e.LastRunAt, e.NextRunAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return conductor.ErrDuplicateSchedule
		}
		return fmt.Errorf("conductor/postgres: register schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM conductor_schedules WHERE id = $1`,
		scheduleID.String(),
	)
	e, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conductor.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("conductor/postgres: get schedule: %w", err)
	}
	return e, nil
}

// ListSchedules returns all schedule entries ordered by name.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM conductor_schedules ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("conductor/postgres: list schedules: %w", err)
	}
	defer rows.Close()

	var entries []*schedule.Entry
	for rows.Next() {
		e, scanErr := scanSchedule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("conductor/postgres: scan schedule row: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("conductor/postgres: iterate schedule rows: %w", err)
	}
	return entries, nil
}

// UpdateSchedule persists changes to a schedule entry.
func (s *Store) UpdateSchedule(ctx context.Context, e *schedule.Entry) error {
	args, kwargs, resources, tags, err := encodeSchedule(e)
	if err != nil {
		return fmt.Errorf("conductor/postgres: update schedule: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE conductor_schedules SET
			name = $2, spec = $3, call_name = $4, args = $5, kwargs = $6,
			resources = $7, tags = $8, queue = $9, enabled = $10,
			last_run_at = $11, next_run_at = $12, updated_at = $13
		WHERE id = $1`,
		e.ID.String(), e.Name, e.Spec, e.CallName, args, kwargs,
		resources, tags, e.Queue, e.Enabled,
		e.LastRunAt, e.NextRunAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("conductor/postgres: update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return conductor.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conductor_schedules WHERE id = $1`, scheduleID.String())
	if err != nil {
		return fmt.Errorf("conductor/postgres: delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return conductor.ErrScheduleNotFound
	}
	return nil
}

// encodeSchedule marshals the JSONB columns of e. Empty values map to NULL.
func encodeSchedule(e *schedule.Entry) (args, kwargs, resources, tags []byte, err error) {
	if len(e.Args) > 0 {
		if args, err = json.Marshal(e.Args); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if len(e.Kwargs) > 0 {
		if kwargs, err = json.Marshal(e.Kwargs); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if len(e.Resources) > 0 {
		if resources, err = json.Marshal(e.Resources); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if len(e.Tags) > 0 {
		if tags, err = json.Marshal(e.Tags); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return args, kwargs, resources, tags, nil
}

func scanSchedule(row pgx.Row) (*schedule.Entry, error) {
	var (
		e                            schedule.Entry
		idStr                        string
		args, kwargs, resources, tgs []byte
	)
	err := row.Scan(
		&idStr, &e.Name, &e.Spec, &e.CallName, &args, &kwargs, &resources, &tgs,
		&e.Queue, &e.Enabled, &e.LastRunAt, &e.NextRunAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseScheduleID(idStr)
	if err != nil {
		return nil, fmt.Errorf("conductor/postgres: parse schedule id %q: %w", idStr, err)
	}
	e.ID = parsedID

	for _, col := range []struct {
		data []byte
		dst  any
	}{
		{args, &e.Args},
		{kwargs, &e.Kwargs},
		{resources, &e.Resources},
		{tgs, &e.Tags},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("conductor/postgres: decode schedule %s: %w", idStr, err)
		}
	}
	return &e, nil
}

// uniqueViolation matches SQLSTATE 23505, raised when a schedule name is
// already taken.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
