package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

// AblyToken 签发实时聊天 token
// @Summary 获取 Ably token
// @Tags 实时通信
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=realtime.Token}
// @Failure 401 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /auth/ably-token [get]
func (h *Handler) AblyToken(c *gin.Context) {
	tok, err := h.realtime.Token(middleware.UserID(c))
	if err != nil {
		h.fail(c, "ably_token", err)
		return
	}
	response.Success(c, tok)
}

// AblyConfig 客户端连接配置
// @Summary 获取 Ably 客户端配置
// @Tags 实时通信
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.RealtimeConfig}
// @Failure 401 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /auth/ably-config [get]
func (h *Handler) AblyConfig(c *gin.Context) {
	cfg, err := h.realtime.Config(middleware.UserID(c))
	if err != nil {
		h.fail(c, "ably_config", err)
		return
	}
	response.Success(c, cfg)
}
