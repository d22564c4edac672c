package models

import "time"

// VerificationKind distinguishes the two uses of a verification token.
type VerificationKind string

const (
	KindEmailVerification VerificationKind = "EMAIL_VERIFICATION"
	KindPasswordReset     VerificationKind = "PASSWORD_RESET"
)

// VerificationToken stores single-use, expiring secrets proving control of an
// email address. Only the SHA-256 hash of the token persists; the plaintext is
// shown to the user exactly once inside a delivered link.
type VerificationToken struct {
	BaseModel

	UserID    string           `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TokenHash string           `gorm:"not null" json:"-"`
	Kind      VerificationKind `gorm:"not null;index" json:"kind"`
	ExpiresAt time.Time        `gorm:"index" json:"expires_at"`
}

// Expired reports whether the token lifetime has elapsed.
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
