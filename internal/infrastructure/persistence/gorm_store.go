package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements KeyValueStore on the kv_entries table (PostgreSQL or SQLite)
type GormStore struct {
	db     *gorm.DB
	prefix string
}

// NewGormStore creates a GormStore. prefix is prepended to every key.
func NewGormStore(db *gorm.DB, prefix string) *GormStore {
	return &GormStore{db: db, prefix: prefix}
}

// WithTx returns a store bound to the given transaction
func (s *GormStore) WithTx(tx *gorm.DB) *GormStore {
	return &GormStore{db: tx, prefix: s.prefix}
}

// AutoMigrate creates the kv_entries table. Production schemas are managed by migrations.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.KVEntry{})
}

// Get reads the value under key
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", s.prefix+key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set upserts the value under key
func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	entry := models.KVEntry{Key: s.prefix + key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", s.prefix+key).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

var _ shared.KeyValueStore = (*GormStore)(nil)
