package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conductor/id"
	"github.com/xraph/conductor/resource"
)

// InsertClaims reserves a block of sequence numbers, then writes every
// index entry in one MULTI/EXEC.
func (s *Store) InsertClaims(ctx context.Context, claims []*resource.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	n := int64(len(claims))
	last, err := s.client.IncrBy(ctx, s.keys.claimSeq(), n).Result()
	if err != nil {
		return fmt.Errorf("conductor/redis: insert claims seq: %w", err)
	}
	first := last - n + 1

	pipe := s.client.TxPipeline()
	for i, c := range claims {
		callID := c.CallID.String()
		score := float64(first + int64(i))
		pipe.ZAdd(ctx, s.keys.resource(c.ResourceType, c.ResourceID), goredis.Z{
			Score:  score,
			Member: resourceMember(callID, c.Operation),
		})
		pipe.ZAdd(ctx, s.keys.callClaims(callID), goredis.Z{
			Score:  score,
			Member: callMember(c),
		})
		pipe.SAdd(ctx, s.keys.claimCalls(), callID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: insert claims: %w", err)
	}
	return nil
}

// FindClaims returns every claim on any of keys, in insertion order. One
// ZRANGE per distinct key is sent in a single pipeline.
func (s *Store) FindClaims(ctx context.Context, keys []resource.Key) ([]*resource.Claim, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	type lookup struct {
		key resource.Key
		cmd *goredis.ZSliceCmd
	}
	seen := make(map[resource.Key]struct{}, len(keys))
	lookups := make([]lookup, 0, len(keys))
	pipe := s.client.Pipeline()
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		lookups = append(lookups, lookup{key: k, cmd: pipe.ZRangeWithScores(ctx, s.keys.resource(k.Type, k.ID), 0, -1)})
	}
	if _, err := pipe.Exec(ctx); err != nil && !isRedisNil(err) {
		return nil, fmt.Errorf("conductor/redis: find claims: %w", err)
	}

	var found []scoredClaim
	for _, l := range lookups {
		zs, err := l.cmd.Result()
		if err != nil && !isRedisNil(err) {
			return nil, fmt.Errorf("conductor/redis: find claims %s: %w", l.key, err)
		}
		for _, z := range zs {
			member, _ := z.Member.(string) //nolint:errcheck // sorted set members are strings
			c, err := parseResourceMember(l.key, member)
			if err != nil {
				return nil, fmt.Errorf("conductor/redis: find claims: %w", err)
			}
			found = append(found, scoredClaim{score: z.Score, claim: c})
		}
	}
	return sortClaims(found), nil
}

// ListClaims returns every claim held by callID in insertion order.
func (s *Store) ListClaims(ctx context.Context, callID id.CallID) ([]*resource.Claim, error) {
	zs, err := s.client.ZRangeWithScores(ctx, s.keys.callClaims(callID.String()), 0, -1).Result()
	if err != nil && !isRedisNil(err) {
		return nil, fmt.Errorf("conductor/redis: list claims: %w", err)
	}

	claims := make([]*resource.Claim, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string) //nolint:errcheck // sorted set members are strings
		c, err := parseCallMember(callID, member)
		if err != nil {
			return nil, fmt.Errorf("conductor/redis: list claims: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// RemoveClaims deletes every claim held by callID.
func (s *Store) RemoveClaims(ctx context.Context, callID id.CallID) error {
	claims, err := s.ListClaims(ctx, callID)
	if err != nil {
		return err
	}

	cid := callID.String()
	pipe := s.client.TxPipeline()
	for _, c := range claims {
		pipe.ZRem(ctx, s.keys.resource(c.ResourceType, c.ResourceID), resourceMember(cid, c.Operation))
	}
	pipe.Del(ctx, s.keys.callClaims(cid))
	pipe.SRem(ctx, s.keys.claimCalls(), cid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conductor/redis: remove claims: %w", err)
	}
	return nil
}

// ClearClaims deletes every claim.
func (s *Store) ClearClaims(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, s.keys.claimCalls()).Result()
	if err != nil {
		return fmt.Errorf("conductor/redis: clear claims: %w", err)
	}
	for _, raw := range ids {
		callID, parseErr := id.ParseCallID(raw)
		if parseErr != nil {
			s.client.SRem(ctx, s.keys.claimCalls(), raw)
			continue
		}
		if err := s.RemoveClaims(ctx, callID); err != nil {
			return err
		}
	}
	return nil
}

// ── member encoding ──

type scoredClaim struct {
	score float64
	claim *resource.Claim
}

func sortClaims(found []scoredClaim) []*resource.Claim {
	sort.Slice(found, func(i, j int) bool { return found[i].score < found[j].score })
	out := make([]*resource.Claim, len(found))
	for i, f := range found {
		out[i] = f.claim
	}
	return out
}

func resourceMember(callID string, op resource.Operation) string {
	return callID + "|" + string(op)
}

func parseResourceMember(k resource.Key, member string) (*resource.Claim, error) {
	callStr, op, ok := strings.Cut(member, "|")
	if !ok {
		return nil, fmt.Errorf("malformed claim member %q", member)
	}
	callID, err := id.ParseCallID(callStr)
	if err != nil {
		return nil, err
	}
	return &resource.Claim{
		CallID:       callID,
		ResourceType: k.Type,
		ResourceID:   k.ID,
		Operation:    resource.Operation(op),
	}, nil
}

func callMember(c *resource.Claim) string {
	b, _ := json.Marshal([]string{c.ResourceType, c.ResourceID, string(c.Operation)}) //nolint:errcheck // []string never fails
	return string(b)
}

func parseCallMember(callID id.CallID, member string) (*resource.Claim, error) {
	var parts []string
	if err := json.Unmarshal([]byte(member), &parts); err != nil || len(parts) != 3 {
		return nil, fmt.Errorf("malformed claim member %q", member)
	}
	return &resource.Claim{
		CallID:       callID,
		ResourceType: parts[0],
		ResourceID:   parts[1],
		Operation:    resource.Operation(parts[2]),
	}, nil
}
