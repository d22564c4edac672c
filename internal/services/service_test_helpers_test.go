package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arvandy/moodmate/internal/auth"
	testutil "github.com/arvandy/moodmate/internal/database/testutil"
	"github.com/arvandy/moodmate/internal/models"
	"github.com/arvandy/moodmate/pkg/crypto"
	"github.com/arvandy/moodmate/pkg/mail"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, verified bool) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Name:     "Test User",
		Password: hash,
	}
	if verified {
		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		user.EmailVerified = &at
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// recordingMailer captures outgoing messages instead of delivering them.
type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	fail     error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

func newAuthStack(t *testing.T, db *gorm.DB, clock *testClock, mailer mail.Mailer) *AuthService {
	t.Helper()

	users, err := NewUserService(db)
	require.NoError(t, err)

	verifications, err := NewVerificationService(db, WithVerificationClock(clock.Now))
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(auth.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "moodmate",
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	sessions, err := auth.NewSessionService(db, tokens, auth.SessionConfig{Clock: clock.Now})
	require.NoError(t, err)

	svc, err := NewAuthService(users, verifications, sessions, tokens, mailer, AuthConfig{
		VerificationTTL: time.Hour,
		BaseURL:         "http://localhost:8080",
		Clock:           clock.Now,
	})
	require.NoError(t, err)

	return svc
}
