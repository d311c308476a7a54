package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/schedule"
)

// RegisterSchedule persists a new schedule entry. Returns
// conductor.ErrDuplicateSchedule if the name already exists.
func (s *Store) RegisterSchedule(ctx context.Context, e *schedule.Entry) error {
	m, err := toScheduleModel(e)
	if err != nil {
		return fmt.Errorf("conductor/mongo: register schedule: %w", err)
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return conductor.ErrDuplicateSchedule
		}
		return fmt.Errorf("conductor/mongo: register schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	var m scheduleModel
	err := s.mdb.Collection(colSchedules).FindOne(ctx, bson.M{"_id": scheduleID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, conductor.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("conductor/mongo: get schedule: %w", err)
	}
	return fromScheduleModel(&m)
}

// ListSchedules returns all schedule entries ordered by name.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.mdb.Collection(colSchedules).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("conductor/mongo: list schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var models []scheduleModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("conductor/mongo: list schedules decode: %w", err)
	}

	entries := make([]*schedule.Entry, 0, len(models))
	for i := range models {
		e, convErr := fromScheduleModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("conductor/mongo: list schedules convert: %w", convErr)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpdateSchedule persists changes to a schedule entry.
func (s *Store) UpdateSchedule(ctx context.Context, e *schedule.Entry) error {
	m, err := toScheduleModel(e)
	if err != nil {
		return fmt.Errorf("conductor/mongo: update schedule: %w", err)
	}
	m.UpdatedAt = now()
	res, err := s.mdb.Collection(colSchedules).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("conductor/mongo: update schedule: %w", err)
	}
	if res.MatchedCount == 0 {
		return conductor.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	res, err := s.mdb.Collection(colSchedules).DeleteOne(ctx, bson.M{"_id": scheduleID.String()})
	if err != nil {
		return fmt.Errorf("conductor/mongo: delete schedule: %w", err)
	}
	if res.DeletedCount == 0 {
		return conductor.ErrScheduleNotFound
	}
	return nil
}
