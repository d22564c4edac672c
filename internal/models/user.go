package models

import (
	"time"
)

// User holds account identity and credentials. The password hash never
// serialises to JSON; response shaping in the handlers is the second guard.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `gorm:"not null" json:"name"`
	Password string `gorm:"not null" json:"-"`

	// EmailVerified is nil until the verification link is consumed.
	EmailVerified *time.Time `json:"email_verified"`

	Sessions []Session           `gorm:"foreignKey:UserID" json:"-"`
	Moods    []Mood              `gorm:"foreignKey:UserID" json:"-"`
	Tokens   []VerificationToken `gorm:"foreignKey:UserID" json:"-"`
}

// IsVerified reports whether the account completed email verification.
func (u *User) IsVerified() bool {
	return u.EmailVerified != nil
}

// SafeUser is the subset of user fields exposed at API boundaries.
type SafeUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	EmailVerified *time.Time `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Sanitize returns the boundary-safe projection of the user.
func (u *User) Sanitize() SafeUser {
	return SafeUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
