package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisClient connects to ACCT_TEST_REDIS_ADDR or skips the test
func redisClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	addr := os.Getenv("ACCT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ACCT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, "acct-test:"+uuid.NewString()+":")
	key := uuid.NewString() + ":2024-01-15T09:00:00Z"

	ok, err := store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessed(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	processed, err := store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRedisLocker(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, "acct-test:"+uuid.NewString()+":")

	release, ok, err := locker.TryLock(ctx, "recurring", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "recurring", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not obtain the lock")

	require.NoError(t, release(ctx))

	release, ok, err = locker.TryLock(ctx, "recurring", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, release(ctx))
}
