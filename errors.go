package conductor

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("conductor: no store configured")
	ErrNoQueue         = errors.New("conductor: no task queue configured")
	ErrStoreClosed     = errors.New("conductor: store closed")
	ErrMigrationFailed = errors.New("conductor: migration failed")

	// Not found errors.
	ErrCallNotFound     = errors.New("conductor: call not found")
	ErrScheduleNotFound = errors.New("conductor: schedule not found")
	ErrNoHandler        = errors.New("conductor: no handler registered")
	ErrUnknownQueue     = errors.New("conductor: unknown queue")

	// Conflict errors.
	ErrCallAlreadyExists  = errors.New("conductor: call already exists")
	ErrDuplicateSchedule  = errors.New("conductor: duplicate schedule entry")
	ErrClaimWithoutCallID = errors.New("conductor: resource claim has no call id")

	// State errors.
	ErrInvalidState = errors.New("conductor: invalid state transition")

	// Coordinator errors.
	ErrCycleDetected              = errors.New("conductor: dependency cycle detected")
	ErrAsynchronousExecution      = errors.New("conductor: asynchronous call cannot be executed synchronously")
	ErrOperationTimedOut          = errors.New("conductor: operation timed out")
	ErrUnrecognizedSearchCriteria = errors.New("conductor: unrecognized search criteria")
)
