package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/response"
)

// Health returns a readiness payload including database connectivity.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				response.Error(c, errors.New("SERVICE_UNAVAILABLE", "Database unreachable", http.StatusServiceUnavailable))
				return
			}
		}
		response.Success(c, http.StatusOK, "", gin.H{"status": "ok"})
	}
}
