package api

import (
	"github.com/gin-gonic/gin"

	"github.com/arvandy/moodmate/internal/handlers"
)

type moodRouteDeps struct {
	Handler     *handlers.MoodHandler
	RequireAuth gin.HandlerFunc
}

func registerMoodRoutes(v1 *gin.RouterGroup, deps moodRouteDeps) {
	moods := v1.Group("/moods")
	moods.Use(deps.RequireAuth)
	{
		moods.GET("", deps.Handler.List)
		moods.POST("", deps.Handler.Create)
		moods.GET("/summary", deps.Handler.Summary)
		moods.GET("/similar", deps.Handler.Similar)
		moods.POST("/chat", deps.Handler.Chat)
		moods.GET("/:id", deps.Handler.Get)
		moods.PUT("/:id", deps.Handler.Update)
		moods.DELETE("/:id", deps.Handler.Delete)
	}
}
