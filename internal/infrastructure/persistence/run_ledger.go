package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunLedger implements IdempotencyStore on the processed_runs table.
// It lets SQL deployments without Redis bill each scheduled occurrence once
// across restarts and instances.
type RunLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRunLedger creates a RunLedger
func NewRunLedger(db *gorm.DB) *RunLedger {
	return &RunLedger{db: db, now: time.Now}
}

// AutoMigrate creates processed_runs for SQLite, which has no migration pipeline
func (l *RunLedger) AutoMigrate() error {
	return l.db.AutoMigrate(&models.ProcessedRun{})
}

// MarkProcessed inserts key unless a live row exists. An expired row is replaced.
func (l *RunLedger) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := l.now()
	db := l.db.WithContext(ctx)

	if err := db.Where("run_key = ? AND expires_at <= ?", key, now).
		Delete(&models.ProcessedRun{}).Error; err != nil {
		return false, fmt.Errorf("failed to expire run key %s: %w", key, err)
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ProcessedRun{
		RunKey:    key,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark run key %s: %w", key, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// IsProcessed reports whether key has a live row
func (l *RunLedger) IsProcessed(ctx context.Context, key string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.ProcessedRun{}).
		Where("run_key = ? AND expires_at > ?", key, l.now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check run key %s: %w", key, err)
	}
	return count > 0, nil
}

// Purge deletes expired rows and returns how many were removed
func (l *RunLedger) Purge(ctx context.Context) (int64, error) {
	res := l.db.WithContext(ctx).Where("expires_at <= ?", l.now()).Delete(&models.ProcessedRun{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge run ledger: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close is a no-op; the database is owned by the Backend
func (l *RunLedger) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RunLedger)(nil)
