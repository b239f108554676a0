package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

// Health 检查数据库与 Redis
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "ok"}
	healthy := true

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			logger.Warn("health: database ping failed", zap.Error(err))
			checks["database"] = "down"
			healthy = false
		}
	}
	if err := h.cache.Ping(ctx); err != nil {
		logger.Warn("health: redis ping failed", zap.Error(err))
		checks["redis"] = "down"
		healthy = false
	}

	if !healthy {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Response{Success: false, Message: "Service unavailable", Data: checks})
		return
	}
	response.Success(c, checks)
}
