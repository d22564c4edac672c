package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/arvandy/moodmate/internal/auth"
	testutil "github.com/arvandy/moodmate/internal/database/testutil"
	"github.com/arvandy/moodmate/internal/models"
	"github.com/arvandy/moodmate/internal/services"
)

func setupAuthMiddleware(t *testing.T) (*gorm.DB, *iauth.TokenService, gin.HandlerFunc) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	tokens, err := iauth.NewTokenService(iauth.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "moodmate",
	})
	require.NoError(t, err)

	users, err := services.NewUserService(db)
	require.NoError(t, err)

	return db, tokens, Auth(tokens, users)
}

func seedVerifiedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	at := time.Now().UTC()
	user := &models.User{
		Email:         email,
		Name:          "Test",
		Password:      "hash",
		EmailVerified: &at,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func authRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/protected", mw, func(c *gin.Context) {
		user := c.MustGet(CtxUserKey).(models.SafeUser)
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	})
	return r
}

func TestAuthAcceptsBearerHeader(t *testing.T) {
	db, tokens, mw := setupAuthMiddleware(t)
	user := seedVerifiedUser(t, db, "bearer@example.com")

	access, err := tokens.IssueAccessToken(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	authRouter(mw).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), user.ID)
}

func TestAuthAcceptsAccessTokenCookie(t *testing.T) {
	db, tokens, mw := setupAuthMiddleware(t)
	user := seedVerifiedUser(t, db, "cookie@example.com")

	access, err := tokens.IssueAccessToken(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
	w := httptest.NewRecorder()
	authRouter(mw).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	_, _, mw := setupAuthMiddleware(t)
	router := authRouter(mw)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestAuthRejectsVanishedUser(t *testing.T) {
	db, tokens, mw := setupAuthMiddleware(t)
	user := seedVerifiedUser(t, db, "gone@example.com")

	access, err := tokens.IssueAccessToken(user.ID)
	require.NoError(t, err)

	require.NoError(t, db.Delete(&models.User{}, "id = ?", user.ID).Error)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	authRouter(mw).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsRefreshTokenAsAccess(t *testing.T) {
	db, tokens, mw := setupAuthMiddleware(t)
	user := seedVerifiedUser(t, db, "swap@example.com")

	refresh, err := tokens.IssueRefreshToken(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w := httptest.NewRecorder()
	authRouter(mw).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
