package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/response"
)

// Recovery 捕获 panic，上报 Sentry（已初始化时），返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && err == http.ErrAbortHandler {
				panic(rec)
			}

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(c.Request)
			hub.Scope().SetTag("request_id", c.GetString(ContextRequestID))
			hub.RecoverWithContext(c.Request.Context(), rec)
			hub.Flush(2 * time.Second)

			logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(ContextRequestID)),
				zap.ByteString("stack", debug.Stack()),
			)
			response.InternalError(c, fmt.Errorf("panic: %v", rec))
		}()
		c.Next()
	}
}

// ReportErrors 把 handler 通过 c.Error 记录的 5xx 错误发送到 Sentry
func ReportErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < http.StatusInternalServerError || len(c.Errors) == 0 {
			return
		}
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		hub.Scope().SetTag("route", c.FullPath())
		for _, e := range c.Errors {
			hub.CaptureException(e.Err)
		}
	}
}
