package models

import "time"

// CacheRecord backs the database cache store used when Redis is absent.
// Rate-limit counters and cached session lookups live in this table; rows
// past ExpiresAt are dead and reaped lazily on read.
type CacheRecord struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Payload   []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
