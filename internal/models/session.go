package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session binds a user to a currently valid refresh token. The token column is
// nullable: a row is created first, then the signed refresh token (which embeds
// the session id) is attached. A session whose RefreshToken is nil is not yet
// usable and simply ages out by ExpiresAt.
type Session struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RefreshToken *string   `gorm:"uniqueIndex" json:"-"`
	ExpiresAt    time.Time `gorm:"index" json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Usable reports whether the session has an attached refresh token and has not expired.
func (s *Session) Usable(now time.Time) bool {
	return s.RefreshToken != nil && now.Before(s.ExpiresAt)
}
