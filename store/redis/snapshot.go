package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/snapshot"
)

// SaveQueuedCall upserts a queued call.
func (s *Store) SaveQueuedCall(ctx context.Context, qc *snapshot.QueuedCall) error {
	cid := qc.CallID.String()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.queued(cid))
	pipe.HSet(ctx, s.keys.queued(cid), queuedToMap(qc))
	pipe.ZAdd(ctx, s.keys.queuedIDs(), goredis.Z{
		Score:  float64(qc.EnqueuedAt.UnixMicro()),
		Member: cid,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: save queued call: %w", err)
	}
	return nil
}

// DeleteQueuedCall removes the entry for callID if present.
func (s *Store) DeleteQueuedCall(ctx context.Context, callID id.CallID) error {
	cid := callID.String()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.queued(cid))
	pipe.ZRem(ctx, s.keys.queuedIDs(), cid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: delete queued call: %w", err)
	}
	return nil
}

// ListQueuedCalls returns every entry ordered by enqueue time. Equal
// timestamps fall back to the sorted set's lexical member order.
func (s *Store) ListQueuedCalls(ctx context.Context) ([]*snapshot.QueuedCall, error) {
	ids, err := s.client.ZRange(ctx, s.keys.queuedIDs(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conductor/redis: list queued calls: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, cid := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.keys.queued(cid))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("conductor/redis: list queued calls fetch: %w", err)
	}

	result := make([]*snapshot.QueuedCall, 0, len(ids))
	for _, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			continue
		}
		qc, convErr := mapToQueued(vals)
		if convErr != nil {
			return nil, convErr
		}
		result = append(result, qc)
	}
	return result, nil
}

// ClearQueuedCalls removes every entry.
func (s *Store) ClearQueuedCalls(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.keys.queuedIDs(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("conductor/redis: clear queued calls: %w", err)
	}
	pipe := s.client.TxPipeline()
	for _, cid := range ids {
		pipe.Del(ctx, s.keys.queued(cid))
	}
	pipe.Del(ctx, s.keys.queuedIDs())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: clear queued calls: %w", err)
	}
	return nil
}

func queuedToMap(qc *snapshot.QueuedCall) map[string]interface{} {
	return map[string]interface{}{
		"call_id":     qc.CallID.String(),
		"group_id":    qc.GroupID.String(),
		"codec":       qc.Codec,
		"descriptor":  string(qc.Descriptor),
		"enqueued_at": strconv.FormatInt(qc.EnqueuedAt.UnixNano(), 10),
	}
}

func mapToQueued(m map[string]string) (*snapshot.QueuedCall, error) {
	callID, err := id.ParseCallID(m["call_id"])
	if err != nil {
		return nil, fmt.Errorf("conductor/redis: parse call id: %w", err)
	}
	groupID, err := id.ParseOptional(m["group_id"], id.PrefixGroup)
	if err != nil {
		return nil, fmt.Errorf("conductor/redis: parse group id: %w", err)
	}
	nanos, _ := strconv.ParseInt(m["enqueued_at"], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data

	return &snapshot.QueuedCall{
		CallID:     callID,
		GroupID:    groupID,
		Codec:      m["codec"],
		Descriptor: []byte(m["descriptor"]),
		EnqueuedAt: time.Unix(0, nanos).UTC(),
	}, nil
}
