package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/arvandy/moodmate/internal/models"
	"github.com/arvandy/moodmate/pkg/metrics"
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
	Cache           SessionCache
}

var (
	// ErrSessionNotFound indicates that no session matches the provided token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionExpired signals that a session has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned when the supplied refresh token is malformed or missing.
	ErrSessionInvalidToken = errors.New("session: invalid token")
	// ErrSessionRotated marks a refresh token that has already been exchanged.
	// A second caller losing the rotation race receives this error.
	ErrSessionRotated = errors.New("session: token already rotated")
)

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache represents a cache backend for session rows keyed by refresh token.
type SessionCache interface {
	Get(ctx context.Context, refreshToken string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, refreshToken string) error
}

// SessionService manages creation, rotation, and revocation of user sessions.
type SessionService struct {
	db         *gorm.DB
	tokens     *TokenService
	refreshTTL time.Duration
	now        func() time.Time
	cache      SessionCache
}

// NewSessionService constructs a session manager backed by the provided database and token service.
func NewSessionService(db *gorm.DB, tokenService *TokenService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if tokenService == nil {
		return nil, errors.New("session service: token service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = tokenService.RefreshTokenTTL()
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		tokens:     tokenService,
		refreshTTL: ttl,
		now:        clock,
		cache:      cfg.Cache,
	}, nil
}

// Create opens a new session for the user and returns the signed refresh
// token. The session row must exist before the token can be minted because the
// token embeds the session id, so row creation and token attachment run inside
// a single transaction.
func (s *SessionService) Create(ctx context.Context, userID string) (*models.Session, string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, "", errors.New("session service: user id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now()
	session := &models.Session{
		UserID:    userID,
		ExpiresAt: now.Add(s.refreshTTL),
	}

	var refreshToken string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("session service: create session: %w", err)
		}

		token, err := s.tokens.IssueRefreshToken(session.ID)
		if err != nil {
			return fmt.Errorf("session service: issue refresh token: %w", err)
		}

		if err := tx.Model(session).Update("refresh_token", token).Error; err != nil {
			return fmt.Errorf("session service: attach refresh token: %w", err)
		}

		session.RefreshToken = &token
		refreshToken = token
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	metrics.ActiveSessions.Inc()

	if s.cache != nil {
		_ = s.cache.Set(ctx, session, s.refreshTTL)
	}

	return session, refreshToken, nil
}

// AttachRefreshToken binds a signed refresh token to an existing session row.
func (s *SessionService) AttachRefreshToken(ctx context.Context, sessionID, token string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session service: session id is required")
	}
	if strings.TrimSpace(token) == "" {
		return ErrSessionInvalidToken
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("refresh_token", token)
	if result.Error != nil {
		return fmt.Errorf("session service: attach refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// FindByRefreshToken loads the session currently bound to the supplied token.
func (s *SessionService) FindByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrSessionInvalidToken
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, refreshToken); err == nil && cached != nil {
			return cached, nil
		}
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	if s.cache != nil {
		if ttl := session.ExpiresAt.Sub(s.now()); ttl > 0 {
			_ = s.cache.Set(ctx, &session, ttl)
		}
	}

	return &session, nil
}

// Rotate exchanges a refresh token for a fresh one bound to the same session.
// The swap is a compare-and-set on the old token value: the losing side of a
// concurrent rotation updates zero rows and receives ErrSessionRotated, so a
// stolen-then-replayed token dies the moment the legitimate client rotates.
func (s *SessionService) Rotate(ctx context.Context, refreshToken string) (*models.Session, string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, "", ErrSessionInvalidToken
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := s.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	if !session.Usable(now) {
		return nil, "", ErrSessionExpired
	}

	newToken, err := s.tokens.IssueRefreshToken(session.ID)
	if err != nil {
		return nil, "", fmt.Errorf("session service: issue refresh token: %w", err)
	}

	newExpiry := now.Add(s.refreshTTL)
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND refresh_token = ?", session.ID, refreshToken).
		Updates(map[string]any{
			"refresh_token": newToken,
			"expires_at":    newExpiry,
		})
	if result.Error != nil {
		return nil, "", fmt.Errorf("session service: rotate session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if s.cache != nil {
			_ = s.cache.Delete(ctx, refreshToken)
		}
		return nil, "", ErrSessionRotated
	}

	session.RefreshToken = &newToken
	session.ExpiresAt = newExpiry

	if s.cache != nil {
		_ = s.cache.Delete(ctx, refreshToken)
		_ = s.cache.Set(ctx, session, s.refreshTTL)
	}

	return session, newToken, nil
}

// DeleteByRefreshToken removes the session bound to the supplied token.
func (s *SessionService) DeleteByRefreshToken(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return ErrSessionInvalidToken
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("session service: delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))

	if s.cache != nil {
		_ = s.cache.Delete(ctx, refreshToken)
	}

	return nil
}

// RevokeUserSessions removes every session belonging to a user. Invoked after
// a password change so that old credentials cannot keep a session alive.
func (s *SessionService) RevokeUserSessions(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("session service: user id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var tokens []string
	if s.cache != nil {
		if err := s.db.WithContext(ctx).
			Model(&models.Session{}).
			Where("user_id = ? AND refresh_token IS NOT NULL", userID).
			Pluck("refresh_token", &tokens).Error; err != nil {
			tokens = nil
		}
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("session service: revoke user sessions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}
		_ = s.cache.Delete(ctx, token)
	}

	return nil
}

// CleanupExpired removes expired sessions and updates active session metrics.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now()

	var tokens []string
	if s.cache != nil {
		if err := s.db.WithContext(ctx).
			Model(&models.Session{}).
			Where("expires_at < ? AND refresh_token IS NOT NULL", now).
			Pluck("refresh_token", &tokens).Error; err != nil {
			tokens = nil
		}
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			continue
		}
		_ = s.cache.Delete(ctx, token)
	}

	return result.RowsAffected, nil
}
