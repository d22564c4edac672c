package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/arvandy/moodmate/internal/models"
	"github.com/arvandy/moodmate/pkg/crypto"
	apperrors "github.com/arvandy/moodmate/pkg/errors"
)

const (
	defaultVerificationExpiry     = time.Hour
	defaultVerificationTokenBytes = 32
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationExpiry overrides the default token lifetime.
func WithVerificationExpiry(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationTokenSize adjusts the number of random bytes in generated tokens.
func WithVerificationTokenSize(size int) VerificationOption {
	return func(s *VerificationService) {
		if size >= defaultVerificationTokenBytes {
			s.tokenLength = size
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// VerificationService manages the single-use, expiring tokens that prove
// control of an email address. Only the SHA-256 hash of a token is stored;
// the plaintext exists once, inside the delivered link.
type VerificationService struct {
	db          *gorm.DB
	expiry      time.Duration
	tokenLength int
	now         func() time.Time
}

// NewVerificationService constructs the token manager around an injected database handle.
func NewVerificationService(db *gorm.DB, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}

	service := &VerificationService{
		db:          db,
		expiry:      defaultVerificationExpiry,
		tokenLength: defaultVerificationTokenBytes,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue generates a fresh token of the given kind for the user and returns
// the plaintext. All prior outstanding tokens of the same kind are deleted in
// the same transaction, so only the most recently issued token stays valid.
func (s *VerificationService) Issue(ctx context.Context, userID string, kind models.VerificationKind, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("verification service: user id is required")
	}
	if kind != models.KindEmailVerification && kind != models.KindPasswordReset {
		return "", fmt.Errorf("verification service: unknown token kind %q", kind)
	}
	if ttl <= 0 {
		ttl = s.expiry
	}

	plaintext, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return "", fmt.Errorf("verification service: generate token: %w", err)
	}

	record := models.VerificationToken{
		UserID:    userID,
		TokenHash: crypto.HashToken(plaintext),
		Kind:      kind,
		ExpiresAt: s.now().Add(ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND kind = ?", userID, kind).
			Delete(&models.VerificationToken{}).Error; err != nil {
			return fmt.Errorf("verification service: revoke outstanding: %w", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("verification service: create token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return plaintext, nil
}

// Consume validates the plaintext against the most recently created token for
// the email's account, regardless of kind, and deletes the record on success.
// The expiry check runs strictly after the hash match so a wrong token and an
// expired token are not distinguishable by probing.
func (s *VerificationService) Consume(ctx context.Context, email, plaintext string) (*models.VerificationToken, error) {
	email = NormalizeEmail(email)
	plaintext = strings.TrimSpace(plaintext)
	if email == "" || plaintext == "" {
		return nil, apperrors.ErrTokenNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification service: find user: %w", err)
	}

	var token models.VerificationToken
	err = s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification service: find token: %w", err)
	}

	if !crypto.TokenHashEqual(plaintext, token.TokenHash) {
		return nil, apperrors.ErrTokenInvalid
	}

	if token.Expired(s.now()) {
		return nil, apperrors.ErrTokenExpired
	}

	if err := s.db.WithContext(ctx).Delete(&models.VerificationToken{}, "id = ?", token.ID).Error; err != nil {
		return nil, fmt.Errorf("verification service: consume token: %w", err)
	}

	return &token, nil
}

// RevokeAllForUser deletes every outstanding token for the user.
func (s *VerificationService) RevokeAllForUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("verification service: user id is required")
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.VerificationToken{}).Error; err != nil {
		return fmt.Errorf("verification service: revoke for user: %w", err)
	}
	return nil
}

// CleanupExpired purges expired tokens. Invoked by the maintenance cleaner.
func (s *VerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.VerificationToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("verification service: cleanup expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}
