package schedule

import (
	"context"

	"github.com/xraph/conductor/id"
)

// Store defines the persistence contract for schedule entries.
type Store interface {
	// RegisterSchedule persists a new entry. Returns
	// conductor.ErrDuplicateSchedule if the name already exists.
	RegisterSchedule(ctx context.Context, e *Entry) error

	// GetSchedule retrieves an entry by ID.
	GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*Entry, error)

	// ListSchedules returns all entries.
	ListSchedules(ctx context.Context) ([]*Entry, error)

	// UpdateSchedule persists changes to an entry (Enabled, LastRunAt,
	// NextRunAt, etc.).
	UpdateSchedule(ctx context.Context, e *Entry) error

	// DeleteSchedule removes an entry by ID.
	DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error
}
