package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultRunKeyPrefix namespaces processed run keys in Redis
const DefaultRunKeyPrefix = "acct:run:"

// RedisIdempotencyStore records processed run keys with SETNX so that every
// instance sharing the Redis sees the same set
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore creates a store on an existing client. An empty
// prefix selects DefaultRunKeyPrefix.
func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = DefaultRunKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

// MarkProcessed sets the key only if absent; false means another run already claimed it
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark run %s: %w", key, err)
	}
	return ok, nil
}

// IsProcessed reports whether the key exists
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	err := s.client.Get(ctx, s.prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check run %s: %w", key, err)
	}
	return true, nil
}

// Close is a no-op; the client is owned by the caller
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
