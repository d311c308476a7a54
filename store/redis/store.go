// Package redis implements store.Store using Redis. Claims live in one
// sorted set per resource, scored by a global sequence, so a conflict
// lookup for a whole resource map is a single pipelined round trip.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"errors"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conductor/ledger"
	"github.com/xraph/conductor/schedule"
	"github.com/xraph/conductor/snapshot"
)

// Compile-time interface checks.
var (
	_ ledger.Store   = (*Store)(nil)
	_ snapshot.Store = (*Store)(nil)
	_ schedule.Store = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithKeyPrefix namespaces every key. The default is "conductor:".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keys = keyspace(prefix) }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client goredis.Cmdable
	keys   keyspace
	logger *slog.Logger
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, keys: defaultKeyspace, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Migrate is a no-op for Redis (schemaless).
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }

func isRedisNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}
