package models

import "time"

// KVEntry is one key-value row. Each accounting collection occupies a single row
// whose value is the JSON array of its entities.
type KVEntry struct {
	Key       string    `gorm:"type:varchar(191);primaryKey"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (KVEntry) TableName() string {
	return "kv_entries"
}
