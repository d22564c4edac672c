package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/arvandy/moodmate/internal/auth"
	"github.com/arvandy/moodmate/internal/handlers"
	"github.com/arvandy/moodmate/internal/middleware"
	"github.com/arvandy/moodmate/internal/services"
)

// Deps carries everything the router needs. Moods and RateStore are optional.
type Deps struct {
	DB     *gorm.DB
	Tokens *iauth.TokenService
	Users  *services.UserService
	Auth   *services.AuthService
	Moods  *services.MoodService

	RateStore   middleware.RateStore
	RateLimit   int
	RateWindow  time.Duration
	FrontendURL string
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user service must be provided")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(deps.RateStore, deps.RateLimit, deps.RateWindow))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handlers.Health(deps.DB))

	requireAuth := middleware.Auth(deps.Tokens, deps.Users)

	registerAuthRoutes(v1, authRouteDeps{
		Handler:     handlers.NewAuthHandler(deps.Auth, deps.Tokens, deps.FrontendURL),
		RequireAuth: requireAuth,
	})

	if deps.Moods != nil {
		registerMoodRoutes(v1, moodRouteDeps{
			Handler:     handlers.NewMoodHandler(deps.Moods),
			RequireAuth: requireAuth,
		})
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
