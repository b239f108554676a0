package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/pkg/auth"
	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

// ContextUserID 认证通过后写入 gin.Context 的用户ID
const ContextUserID = "user_id"

// Auth 要求 Bearer token，失败返回 401
func Auth(parser *auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authenticate(c, parser)
		if err != nil {
			logger.Debug("authentication failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			response.Unauthorized(c, "Unauthenticated.")
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// OptionalAuth 有合法 token 时写入用户ID，否则按匿名继续
func OptionalAuth(parser *auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := authenticate(c, parser); err == nil {
			c.Set(ContextUserID, userID)
		}
		c.Next()
	}
}

var errMissingToken = errors.New("missing bearer token")

func authenticate(c *gin.Context, parser *auth.TokenParser) (uint, error) {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return 0, errMissingToken
	}
	claims, err := parser.Parse(strings.TrimSpace(token))
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// UserID 当前用户ID，匿名时为 0
func UserID(c *gin.Context) uint {
	return c.GetUint(ContextUserID)
}
