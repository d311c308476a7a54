package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/schedule"
)

// RegisterSchedule persists a new schedule entry. Returns
// conductor.ErrDuplicateSchedule if the name already exists.
func (s *Store) RegisterSchedule(ctx context.Context, e *schedule.Entry) error {
	_, err := s.db.NewInsert().Model(toScheduleModel(e)).Exec(ctx)
	if err != nil {
		if uniqueViolation(err) {
			return conductor.ErrDuplicateSchedule
		}
		return fmt.Errorf("conductor/bun: register schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	m := new(scheduleModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", scheduleID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, conductor.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("conductor/bun: get schedule: %w", err)
	}
	return fromScheduleModel(m)
}

// ListSchedules returns all schedule entries ordered by name.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	var models []scheduleModel
	err := s.db.NewSelect().Model(&models).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("conductor/bun: list schedules: %w", err)
	}

	entries := make([]*schedule.Entry, 0, len(models))
	for i := range models {
		e, convErr := fromScheduleModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("conductor/bun: list schedules convert: %w", convErr)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpdateSchedule persists changes to a schedule entry.
func (s *Store) UpdateSchedule(ctx context.Context, e *schedule.Entry) error {
	m := toScheduleModel(e)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(m).
		WherePK().
		ExcludeColumn("created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/bun: update schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conductor/bun: update schedule rows: %w", err)
	}
	if n == 0 {
		return conductor.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	res, err := s.db.NewDelete().Model((*scheduleModel)(nil)).
		Where("id = ?", scheduleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/bun: delete schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conductor/bun: delete schedule rows: %w", err)
	}
	if n == 0 {
		return conductor.ErrScheduleNotFound
	}
	return nil
}

// uniqueViolation matches SQLSTATE 23505, raised when a schedule name is
// already taken.
func uniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
