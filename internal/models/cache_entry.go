package models

import (
	"time"
)

// CacheEntry represents a cached value stored in the database fallback. A zero ExpiresAt
// never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name used by the maintenance purge.
func (CacheEntry) TableName() string { return "cache_entries" }
