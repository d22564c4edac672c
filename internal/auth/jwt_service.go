package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/arvandy/moodmate/pkg/errors"
)

// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
const DefaultAccessTokenTTL = 24 * time.Hour

// DefaultRefreshTokenTTL defines the fallback validity period for refresh tokens.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

// JWTConfig bundles the configuration required to build a TokenService.
// Access and refresh tokens are signed with independent secrets so that one
// kind can never be replayed as the other.
type JWTConfig struct {
	AccessSecret    string
	RefreshSecret   string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// AccessClaims are the claims embedded in issued access tokens.
type AccessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims embedded in issued refresh tokens.
type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the access and refresh JSON Web Tokens
// used by the credential subsystem.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService constructs a TokenService instance from the provided configuration.
func NewTokenService(cfg JWTConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("jwt: access secret must be provided")
	}
	if cfg.RefreshSecret == "" {
		return nil, errors.New("jwt: refresh secret must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}, nil
}

// AccessTokenTTL reports the configured access token lifetime.
func (s *TokenService) AccessTokenTTL() time.Duration { return s.accessTTL }

// RefreshTokenTTL reports the configured refresh token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived token identifying the user.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("jwt: user id is required")
	}

	now := s.now()
	claims := &AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a long-lived token identifying the session. The
// token carries only the session id, never the user id.
func (s *TokenService) IssueRefreshToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("jwt: session id is required")
	}

	now := s.now()
	claims := &RefreshClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken parses and validates an access token, returning its claims.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := s.parse(tokenString, &claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, apperrors.ErrTokenInvalid.WithInternal(errors.New("jwt: missing user id claim"))
	}
	return &claims, nil
}

// VerifyRefreshToken parses and validates a refresh token, returning its claims.
func (s *TokenService) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := s.parse(tokenString, &claims, s.refreshSecret); err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, apperrors.ErrTokenInvalid.WithInternal(errors.New("jwt: missing session id claim"))
	}
	return &claims, nil
}

// parse validates a token and maps library failures onto the domain
// sentinels: expiry becomes ErrTokenExpired, everything else (bad signature,
// malformed string, wrong issuer) becomes ErrTokenInvalid. Callers and the
// middleware only ever see those two.
func (s *TokenService) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return apperrors.ErrTokenInvalid.WithInternal(errors.New("jwt: token string is empty"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apperrors.ErrTokenExpired.WithInternal(err)
		}
		return apperrors.ErrTokenInvalid.WithInternal(fmt.Errorf("jwt: parse token: %w", err))
	}

	if s.issuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != s.issuer {
			return apperrors.ErrTokenInvalid.WithInternal(errors.New("jwt: unexpected issuer"))
		}
	}

	return nil
}
