package api

import (
	"github.com/gin-gonic/gin"

	"github.com/arvandy/moodmate/internal/handlers"
)

type authRouteDeps struct {
	Handler     *handlers.AuthHandler
	RequireAuth gin.HandlerFunc
}

func registerAuthRoutes(v1 *gin.RouterGroup, deps authRouteDeps) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.Handler.Register)
		auth.POST("/login", deps.Handler.Login)
		auth.GET("/verify-email", deps.Handler.VerifyEmail)
		auth.POST("/resend-verification-email", deps.Handler.ResendVerification)
		auth.POST("/reset-password", deps.Handler.ResetPassword)
		auth.POST("/change-password", deps.Handler.ChangePassword)
		auth.POST("/refresh-token", deps.Handler.RefreshToken)
		auth.POST("/logout", deps.Handler.Logout)
	}

	auth.GET("/me", deps.RequireAuth, deps.Handler.Me)
}
