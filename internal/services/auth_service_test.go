package services

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arvandy/moodmate/internal/models"
	apperrors "github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/mail"
)

var linkPattern = regexp.MustCompile(`https?://\S+`)

func extractLinkToken(t *testing.T, msg mail.Message) string {
	t.Helper()

	raw := linkPattern.FindString(msg.Body)
	require.NotEmpty(t, raw, "no link in message body")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestRegisterVerifyLoginRefreshScenario(t *testing.T) {
	db := newTestDB(t)
	clock := newTestClock()
	mailer := &recordingMailer{}
	svc := newAuthStack(t, db, clock, mailer)

	safe, err := svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", safe.Email)
	require.Nil(t, safe.EmailVerified)

	messages := mailer.sent()
	require.Len(t, messages, 1)
	require.Equal(t, "alice@example.com", messages[0].To)

	token := extractLinkToken(t, messages[0])
	result, err := svc.VerifyEmail(context.Background(), "alice@example.com", token)
	require.NoError(t, err)
	require.Equal(t, models.KindEmailVerification, result.Kind)

	login, err := svc.Login(context.Background(), "alice@example.com", "Passw0rd!")
	require.NoError(t, err)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	require.NotNil(t, login.User.EmailVerified)

	clock.Advance(time.Minute)

	pair, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.AccessToken, pair.AccessToken)
	require.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	// The rotated-away token is dead immediately.
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthStack(t, db, newTestClock(), &recordingMailer{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "dup@example.com", Name: "A", Password: "Passw0rd!",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Email: "DUP@example.com", Name: "B", Password: "Passw0rd!",
	})
	require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
}

func TestRegisterMailFailureAfterPersist(t *testing.T) {
	db := newTestDB(t)
	mailer := &recordingMailer{fail: errors.New("smtp boom")}
	svc := newAuthStack(t, db, newTestClock(), mailer)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "split@example.com", Name: "Split", Password: "Passw0rd!",
	})
	require.ErrorIs(t, err, apperrors.ErrEmailSendFailed)

	// The user row survives the mail failure; resending is the recovery path.
	var user models.User
	require.NoError(t, db.Take(&user, "email = ?", "split@example.com").Error)

	mailer.fail = nil
	require.NoError(t, svc.ResendVerification(context.Background(), "split@example.com"))
	require.Len(t, mailer.sent(), 1)
}

func TestLoginFailureOrdering(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthStack(t, db, newTestClock(), &recordingMailer{})

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	seedUser(t, db, "unverified@example.com", "Passw0rd!", false)

	// Unverified wins over password correctness, in both directions.
	_, err = svc.Login(context.Background(), "unverified@example.com", "Passw0rd!")
	require.ErrorIs(t, err, apperrors.ErrUserUnverified)
	_, err = svc.Login(context.Background(), "unverified@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrUserUnverified)

	seedUser(t, db, "verified@example.com", "Passw0rd!", true)

	_, err = svc.Login(context.Background(), "verified@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshUnknownToken(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthStack(t, db, newTestClock(), &recordingMailer{})

	_, err := svc.Refresh(context.Background(), "not-a-session-token")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestPasswordResetFlowRedirectsOnKind(t *testing.T) {
	db := newTestDB(t)
	clock := newTestClock()
	mailer := &recordingMailer{}
	svc := newAuthStack(t, db, clock, mailer)

	require.ErrorIs(t,
		svc.RequestPasswordReset(context.Background(), "nobody@example.com"),
		apperrors.ErrUserNotFound)

	user := seedUser(t, db, "reset@example.com", "Passw0rd!", true)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), user.Email))
	messages := mailer.sent()
	require.Len(t, messages, 1)

	token := extractLinkToken(t, messages[0])
	result, err := svc.VerifyEmail(context.Background(), user.Email, token)
	require.NoError(t, err)
	require.Equal(t, models.KindPasswordReset, result.Kind)
	require.Equal(t, user.ID, result.UserID)

	// Consuming a reset token must not flip verification state.
	var reloaded models.User
	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.NotNil(t, reloaded.EmailVerified)
}

func TestChangePasswordRehashesAndRevokes(t *testing.T) {
	db := newTestDB(t)
	clock := newTestClock()
	mailer := &recordingMailer{}
	svc := newAuthStack(t, db, clock, mailer)

	user := seedUser(t, db, "change@example.com", "OldPass1", true)

	login, err := svc.Login(context.Background(), user.Email, "OldPass1")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), user.Email))

	require.NoError(t, svc.ChangePassword(context.Background(), user.Email, "NewPass1"))

	// Stored hash is a hash, not the plaintext.
	var reloaded models.User
	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.NotEqual(t, "NewPass1", reloaded.Password)

	_, err = svc.Login(context.Background(), user.Email, "OldPass1")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), user.Email, "NewPass1")
	require.NoError(t, err)

	// Outstanding sessions and tokens are gone.
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	var tokens int64
	require.NoError(t, db.Model(&models.VerificationToken{}).
		Where("user_id = ?", user.ID).Count(&tokens).Error)
	require.Zero(t, tokens)
}

func TestLogoutRetiresSession(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthStack(t, db, newTestClock(), &recordingMailer{})

	user := seedUser(t, db, "logout@example.com", "Passw0rd!", true)

	login, err := svc.Login(context.Background(), user.Email, "Passw0rd!")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.ErrorIs(t,
		svc.Logout(context.Background(), login.RefreshToken),
		apperrors.ErrUnauthorized)

	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestResendVerificationReplacesToken(t *testing.T) {
	db := newTestDB(t)
	mailer := &recordingMailer{}
	svc := newAuthStack(t, db, newTestClock(), mailer)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "resend@example.com", Name: "Re", Password: "Passw0rd!",
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.ResendVerification(context.Background(), "resend@example.com"))

	messages := mailer.sent()
	require.Len(t, messages, 2)

	// The first link is superseded by the reissue.
	first := extractLinkToken(t, messages[0])
	second := extractLinkToken(t, messages[1])
	require.NotEqual(t, first, second)

	_, err = svc.VerifyEmail(context.Background(), "resend@example.com", first)
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	result, err := svc.VerifyEmail(context.Background(), "resend@example.com", second)
	require.NoError(t, err)
	require.Equal(t, models.KindEmailVerification, result.Kind)

	require.ErrorIs(t,
		svc.ResendVerification(context.Background(), "resend@example.com"),
		apperrors.ErrBadRequest)
}
