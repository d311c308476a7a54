package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/schedule"
)

// RegisterSchedule persists a new schedule entry. The name index is claimed
// with HSETNX so concurrent registrations of one name cannot both succeed.
func (s *Store) RegisterSchedule(ctx context.Context, e *schedule.Entry) error {
	sid := e.ID.String()
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("conductor/redis: register schedule encode: %w", err)
	}

	ok, err := s.client.HSetNX(ctx, s.keys.scheduleNames(), e.Name, sid).Result()
	if err != nil {
		return fmt.Errorf("conductor/redis: register schedule check name: %w", err)
	}
	if !ok {
		return conductor.ErrDuplicateSchedule
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.schedule(sid), data, 0)
	pipe.SAdd(ctx, s.keys.scheduleIDs(), sid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: register schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	data, err := s.client.Get(ctx, s.keys.schedule(scheduleID.String())).Bytes()
	if err != nil {
		if isRedisNil(err) {
			return nil, conductor.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("conductor/redis: get schedule: %w", err)
	}
	var e schedule.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("conductor/redis: decode schedule: %w", err)
	}
	return &e, nil
}

// ListSchedules returns all schedule entries ordered by name.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	ids, err := s.client.SMembers(ctx, s.keys.scheduleIDs()).Result()
	if err != nil {
		return nil, fmt.Errorf("conductor/redis: list schedules: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.StringCmd, len(ids))
	for i, sid := range ids {
		cmds[i] = pipe.Get(ctx, s.keys.schedule(sid))
	}
	if _, err := pipe.Exec(ctx); err != nil && !isRedisNil(err) {
		return nil, fmt.Errorf("conductor/redis: list schedules fetch: %w", err)
	}

	entries := make([]*schedule.Entry, 0, len(ids))
	for _, cmd := range cmds {
		data, getErr := cmd.Bytes()
		if getErr != nil {
			continue
		}
		var e schedule.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("conductor/redis: decode schedule: %w", err)
		}
		entries = append(entries, &e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// UpdateSchedule persists changes to a schedule entry.
func (s *Store) UpdateSchedule(ctx context.Context, e *schedule.Entry) error {
	existing, err := s.GetSchedule(ctx, e.ID)
	if err != nil {
		return err
	}

	cp := *e
	cp.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("conductor/redis: update schedule encode: %w", err)
	}

	sid := e.ID.String()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.schedule(sid), data, 0)
	if existing.Name != e.Name {
		pipe.HDel(ctx, s.keys.scheduleNames(), existing.Name)
		pipe.HSet(ctx, s.keys.scheduleNames(), e.Name, sid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: update schedule: %w", err)
	}
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	existing, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}

	sid := scheduleID.String()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.schedule(sid))
	pipe.SRem(ctx, s.keys.scheduleIDs(), sid)
	pipe.HDel(ctx, s.keys.scheduleNames(), existing.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: delete schedule: %w", err)
	}
	return nil
}
