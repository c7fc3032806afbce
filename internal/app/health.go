package app

import (
	"context"
	"net/http"
	"time"

	"leave-portal/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// healthHandler always answers 200 while the process is up. The cache is
// optional so a failed redis ping only shows up in the body.
func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "up", "cache": "up"}
		if db == nil {
			status["database"] = "down"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "down"
		}
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			status["cache"] = "down"
		}

		response.Success(c, http.StatusOK, status, nil)
	}
}
