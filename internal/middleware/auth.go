package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/arvandy/moodmate/internal/auth"
	"github.com/arvandy/moodmate/internal/services"
	"github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/response"
)

const (
	// CtxUserKey holds the sanitized user attached by the Auth middleware.
	CtxUserKey = "authUser"
	// CtxUserIDKey holds the authenticated user id.
	CtxUserIDKey = "userID"
	// AccessTokenCookie is the cookie the login handler sets.
	AccessTokenCookie = "accessToken"
)

// Auth enforces access token authentication. The token is read from the
// Authorization header or, failing that, the accessToken cookie. The user is
// loaded on every request so a deleted account fails closed.
func Auth(tokens *iauth.TokenService, users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
				token = strings.TrimSpace(cookie)
			}
		}
		if token == "" {
			unauthorized(c)
			return
		}

		claims, err := tokens.VerifyAccessToken(token)
		if err != nil {
			unauthorized(c)
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(CtxUserKey, user.Sanitize())
		c.Set(CtxUserIDKey, user.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}
