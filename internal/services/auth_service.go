package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/arvandy/moodmate/internal/auth"
	"github.com/arvandy/moodmate/internal/models"
	"github.com/arvandy/moodmate/pkg/crypto"
	apperrors "github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/mail"
	"github.com/arvandy/moodmate/pkg/metrics"
)

// AuthConfig carries the orchestration-level settings for authentication flows.
type AuthConfig struct {
	// VerificationTTL is the lifetime of email verification and password
	// reset tokens. Both kinds share the same TTL.
	VerificationTTL time.Duration
	// BaseURL is the externally reachable server URL used in emailed links.
	BaseURL string
	// Clock is injectable for tests.
	Clock func() time.Time
}

// AuthService composes the credential store, token manager, session manager
// and token issuer into the register/login/verify/refresh flows.
type AuthService struct {
	users         *UserService
	verifications *VerificationService
	sessions      *auth.SessionService
	tokens        *auth.TokenService
	mailer        mail.Mailer

	verificationTTL time.Duration
	baseURL         string
	now             func() time.Time
}

// NewAuthService wires the orchestrator from its collaborators. The mailer
// may be nil; flows that dispatch email then skip delivery.
func NewAuthService(
	users *UserService,
	verifications *VerificationService,
	sessions *auth.SessionService,
	tokens *auth.TokenService,
	mailer mail.Mailer,
	cfg AuthConfig,
) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("auth service: user service is required")
	}
	if verifications == nil {
		return nil, errors.New("auth service: verification service is required")
	}
	if sessions == nil {
		return nil, errors.New("auth service: session service is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}

	ttl := cfg.VerificationTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &AuthService{
		users:           users,
		verifications:   verifications,
		sessions:        sessions,
		tokens:          tokens,
		mailer:          mailer,
		verificationTTL: ttl,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		now:             clock,
	}, nil
}

// RegisterInput holds the validated registration payload.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User         models.SafeUser
	AccessToken  string
	RefreshToken string
}

// TokenPair is the outcome of a refresh rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// VerifyResult reports what a consumed verification token proved. Only the
// token kind and the owning user id cross this boundary.
type VerifyResult struct {
	Kind   models.VerificationKind
	UserID string
}

// Register creates an unverified account, issues an email verification token
// and dispatches the link. A mail failure after the user row is persisted
// surfaces as ErrEmailSendFailed; resending is the recovery path.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.SafeUser, error) {
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return models.SafeUser{}, fmt.Errorf("auth service: hash password: %w", err)
	}

	user, err := s.users.Create(ctx, CreateUserInput{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
	})
	if err != nil {
		return models.SafeUser{}, err
	}

	if err := s.sendVerification(ctx, user, models.KindEmailVerification); err != nil {
		return models.SafeUser{}, err
	}

	return user.Sanitize(), nil
}

// Login authenticates a verified account and opens a session. Unknown email
// and unverified email are reported before the password is ever checked, so
// the client always learns "verify first" ahead of credential state.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, err
	}

	if !user.IsVerified() {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrUserUnverified
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	_, refreshToken, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth service: create session: %w", err)
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue access token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return &LoginResult{
		User:         user.Sanitize(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new access/refresh pair. The old
// token is atomically retired; any failure, including a lost rotation race,
// is reported as Unauthorized.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	session, newRefresh, err := s.sessions.Rotate(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSessionNotFound),
			errors.Is(err, auth.ErrSessionExpired),
			errors.Is(err, auth.ErrSessionInvalidToken),
			errors.Is(err, auth.ErrSessionRotated):
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		default:
			return nil, fmt.Errorf("auth service: rotate session: %w", err)
		}
	}

	accessToken, err := s.tokens.IssueAccessToken(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}

// VerifyEmail consumes the most recent token issued for the email. For email
// verification tokens the account is marked verified; for password reset
// tokens the caller branches on the returned kind and redirects to the
// change-password form.
func (s *AuthService) VerifyEmail(ctx context.Context, email, plaintext string) (*VerifyResult, error) {
	token, err := s.verifications.Consume(ctx, email, plaintext)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Kind: token.Kind, UserID: token.UserID}

	if token.Kind == models.KindPasswordReset {
		return result, nil
	}

	verifiedAt := s.now()
	if _, err := s.users.Update(ctx, token.UserID, UpdateUserInput{EmailVerified: &verifiedAt}); err != nil {
		return nil, err
	}

	return result, nil
}

// ResendVerification issues a fresh email verification token, invalidating
// prior ones, and dispatches a new link.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.IsVerified() {
		return apperrors.NewBadRequest("Email address is already verified")
	}

	return s.sendVerification(ctx, user, models.KindEmailVerification)
}

// RequestPasswordReset issues a password reset token for a registered email
// and dispatches the reset link.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.sendVerification(ctx, user, models.KindPasswordReset)
}

// ChangePassword re-hashes and stores the new password, then revokes every
// outstanding verification token and active session for the account.
func (s *AuthService) ChangePassword(ctx context.Context, email, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	if _, err := s.users.Update(ctx, user.ID, UpdateUserInput{PasswordHash: &hash}); err != nil {
		return err
	}

	if err := s.verifications.RevokeAllForUser(ctx, user.ID); err != nil {
		return err
	}

	if err := s.sessions.RevokeUserSessions(ctx, user.ID); err != nil {
		return err
	}

	return nil
}

// Logout retires the session bound to the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.sessions.DeleteByRefreshToken(ctx, refreshToken)
	if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionInvalidToken) {
		return apperrors.ErrUnauthorized.WithInternal(err)
	}
	return err
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User, kind models.VerificationKind) error {
	plaintext, err := s.verifications.Issue(ctx, user.ID, kind, s.verificationTTL)
	if err != nil {
		return err
	}

	if s.mailer == nil {
		return nil
	}

	link := s.verificationLink(user.Email, plaintext)

	var message mail.Message
	switch kind {
	case models.KindPasswordReset:
		message = mail.PasswordResetMessage(user.Email, user.Name, link)
	default:
		message = mail.VerificationMessage(user.Email, user.Name, link)
	}

	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		metrics.VerificationEmails.WithLabelValues(string(kind), "failure").Inc()
		return apperrors.ErrEmailSendFailed.WithInternal(err)
	}

	metrics.VerificationEmails.WithLabelValues(string(kind), "success").Inc()
	return nil
}

func (s *AuthService) verificationLink(email, token string) string {
	query := url.Values{}
	query.Set("token", token)
	query.Set("email", email)

	base := s.baseURL
	if base == "" {
		base = "http://localhost:8080"
	}
	return fmt.Sprintf("%s/api/v1/auth/verify-email?%s", base, query.Encode())
}
