package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/arvandy/moodmate/internal/middleware"
	"github.com/arvandy/moodmate/internal/models"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUser returns the sanitized user attached by the Auth middleware.
func currentUser(c *gin.Context) (models.SafeUser, bool) {
	value, ok := c.Get(middleware.CtxUserKey)
	if !ok {
		return models.SafeUser{}, false
	}
	user, ok := value.(models.SafeUser)
	return user, ok
}

// currentUserID returns the authenticated user id set by the Auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	value, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
