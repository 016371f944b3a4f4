package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/middleware"
	"go.uber.org/zap"
)

type HealthHandler struct {
	db  *database.Database
	rdb *redis.Client
	log *zap.Logger
}

func NewHealthHandler(db *database.Database, rdb *redis.Client, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, log: log}
}

// Health reports whether the database and Redis answer a ping.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "ok"}
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		middleware.Logger(c, h.log).Warn("database ping", zap.Error(err))
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger(c, h.log).Warn("redis ping", zap.Error(err))
		status["redis"] = "down"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}
