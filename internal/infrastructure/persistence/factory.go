package persistence

import (
	"fmt"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// Backend is an opened key-value store and the resources behind it
type Backend struct {
	Store    shared.KeyValueStore
	Database *Database // nil unless the driver is SQL
}

// RunLedger returns the SQL run ledger, or nil for non-SQL drivers
func (b *Backend) RunLedger() *RunLedger {
	if b.Database == nil {
		return nil
	}
	return NewRunLedger(b.Database.DB)
}

// Close releases the database connection, if any
func (b *Backend) Close() error {
	if b.Database != nil {
		return b.Database.Close()
	}
	return nil
}

// OpenBackend opens the store selected by cfg.Storage.Driver. The redis client
// is required only by the redis driver.
func OpenBackend(cfg *config.Config, rdb redis.UniversalClient, opts ...DatabaseOption) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return &Backend{Store: NewMemoryStore()}, nil

	case config.StorageSQLite:
		db, err := NewSQLiteDatabase(cfg.Storage.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		store := NewGormStore(db.DB, cfg.Storage.KeyPrefix)
		// SQLite has no migration pipeline; the tables are created on open
		if err := store.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create kv_entries: %w", err)
		}
		if err := NewRunLedger(db.DB).AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create processed_runs: %w", err)
		}
		return &Backend{Store: store, Database: db}, nil

	case config.StoragePostgres:
		db, err := NewDatabase(&cfg.Database, opts...)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: NewGormStore(db.DB, cfg.Storage.KeyPrefix), Database: db}, nil

	case config.StorageRedis:
		if rdb == nil {
			return nil, fmt.Errorf("storage driver redis requires a redis client")
		}
		return &Backend{Store: NewRedisStore(rdb, cfg.Storage.KeyPrefix)}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
