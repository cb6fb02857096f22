package models

import "time"

// ProcessedRun records a recurring run key so the occurrence is billed once
type ProcessedRun struct {
	RunKey    string    `gorm:"type:varchar(191);primaryKey"`
	ExpiresAt time.Time `gorm:"not null;index:idx_processed_runs_expires_at"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProcessedRun) TableName() string {
	return "processed_runs"
}
