package handler

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/pkg/response"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

// ServeFile 校验本地存储的签名链接并返回文件
// @Summary 签名文件下载（本地存储）
// @Tags 存储
// @Param path path string true "对象路径"
// @Param expires query int true "过期时间戳"
// @Param signature query string true "签名"
// @Success 200 {file} binary
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /storage/{path} [get]
func (h *Handler) ServeFile(c *gin.Context) {
	if h.files == nil {
		response.NotFound(c, "Not found")
		return
	}
	name := strings.TrimPrefix(c.Param("path"), "/")

	err := h.files.Verify(name, c.Query("expires"), c.Query("signature"))
	switch {
	case errors.Is(err, storage.ErrLinkExpired):
		response.Forbidden(c, "Link expired")
		return
	case errors.Is(err, storage.ErrBadSignature):
		response.Forbidden(c, "Invalid signature")
		return
	case errors.Is(err, storage.ErrInvalidPath):
		response.NotFound(c, "Not found")
		return
	case err != nil:
		h.fail(c, "storage_verify", err)
		return
	}

	f, err := h.files.Open(c.Request.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFound(c, "Not found")
		return
	}
	if err != nil {
		h.fail(c, "storage_open", err, zap.String("path", name))
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{"Cache-Control": "private, no-store"}
	if path.Ext(name) == ".pdf" {
		headers["Content-Disposition"] = `attachment; filename="` + path.Base(name) + `"`
	}
	c.DataFromReader(http.StatusOK, -1, contentType, f, headers)
}
