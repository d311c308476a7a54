package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/schedule"
)

// RegisterSchedule persists a new schedule entry. Returns
// conductor.ErrDuplicateSchedule if the name already exists.
func (s *Store) RegisterSchedule(ctx context.Context, e *schedule.Entry) error {
	m, err := toScheduleModel(e)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: register schedule: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return conductor.ErrDuplicateSchedule
		}
		return fmt.Errorf("conductor/sqlite: register schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	m := new(scheduleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", scheduleID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, conductor.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("conductor/sqlite: get schedule: %w", err)
	}
	return fromScheduleModel(m)
}

// ListSchedules returns all schedule entries ordered by name.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	var models []scheduleModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("conductor/sqlite: list schedules: %w", err)
	}

	entries := make([]*schedule.Entry, 0, len(models))
	for i := range models {
		e, convErr := fromScheduleModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("conductor/sqlite: list schedules convert: %w", convErr)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpdateSchedule persists changes to a schedule entry.
func (s *Store) UpdateSchedule(ctx context.Context, e *schedule.Entry) error {
	m, err := toScheduleModel(e)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: update schedule: %w", err)
	}
	m.UpdatedAt = time.Now().UTC()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: update schedule: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 { //nolint:errcheck // driver always returns nil
		return conductor.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	res, err := s.sdb.NewDelete((*scheduleModel)(nil)).
		Where("id = ?", scheduleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conductor/sqlite: delete schedule: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 { //nolint:errcheck // driver always returns nil
		return conductor.ErrScheduleNotFound
	}
	return nil
}
