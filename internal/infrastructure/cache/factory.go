package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// IdempotencyStoreFactory picks the run-key store for the deployment
type IdempotencyStoreFactory struct {
	client   redis.UniversalClient
	fallback shared.IdempotencyStore
	logger   *zap.Logger
}

// FactoryOption configures an IdempotencyStoreFactory
type FactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the factory logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithFallback sets the store used when there is no Redis client, such as the
// SQL-backed run ledger. The default fallback is in-memory.
func WithFallback(store shared.IdempotencyStore) FactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.fallback = store
	}
}

// NewIdempotencyStoreFactory creates a factory. client may be nil.
func NewIdempotencyStoreFactory(client redis.UniversalClient, opts ...FactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the Redis store when a client is configured, else the fallback
func (f *IdempotencyStoreFactory) CreateStore() shared.IdempotencyStore {
	if f.client != nil {
		f.logger.Info("Using Redis run-key store")
		return NewRedisIdempotencyStore(f.client, "")
	}
	if f.fallback != nil {
		f.logger.Info("Using fallback run-key store")
		return f.fallback
	}
	f.logger.Warn("Redis disabled, recording run keys in memory; multiple instances may bill twice")
	return NewInMemoryIdempotencyStore()
}
