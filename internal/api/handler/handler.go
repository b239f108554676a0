package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/internal/service"
	"github.com/d60-Lab/classifieds-api/pkg/cache"
	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/response"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
)

// Services handler 依赖的业务服务
type Services struct {
	Catalog  service.CatalogService
	Search   service.SearchService
	History  service.HistoryService
	Legal    service.LegalService
	PdfBooks service.PdfBookService
	Profile  service.ProfileService
	Realtime service.RealtimeService
	// 可选：登录用户浏览商品时异步写入历史
	Recorder *service.HistoryRecorder
}

type Handler struct {
	catalog  service.CatalogService
	search   service.SearchService
	history  service.HistoryService
	legal    service.LegalService
	books    service.PdfBookService
	profile  service.ProfileService
	realtime service.RealtimeService
	recorder *service.HistoryRecorder

	// files 非 nil 时由 /storage/* 提供本地签名链接下载
	files *storage.Local
	db    *gorm.DB
	cache *cache.Cache
}

func NewHandler(s Services, files *storage.Local, db *gorm.DB, c *cache.Cache) *Handler {
	return &Handler{
		catalog:  s.Catalog,
		search:   s.Search,
		history:  s.History,
		legal:    s.Legal,
		books:    s.PdfBooks,
		profile:  s.Profile,
		realtime: s.Realtime,
		recorder: s.Recorder,
		files:    files,
		db:       db,
		cache:    c,
	}
}

// UseJSONFieldNames 让校验错误使用 json/form 字段名
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// fail 把业务错误映射成 HTTP 状态；未知错误记录日志并返回 500
func (h *Handler) fail(c *gin.Context, op string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrSubCategoryNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrHistoryNotFound),
		errors.Is(err, service.ErrLegalDocumentNotFound),
		errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrPurchaseNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, capitalize(err.Error()))
	case errors.Is(err, service.ErrAlreadyPurchased):
		response.Conflict(c, capitalize(err.Error()))
	case errors.Is(err, service.ErrDownloadLimitReached),
		errors.Is(err, service.ErrAccessExpired),
		errors.Is(err, service.ErrPurchaseInactive):
		response.Forbidden(c, capitalize(err.Error()))
	default:
		fields = append(fields,
			zap.String("op", op),
			zap.Uint("user_id", middleware.UserID(c)),
			zap.String("request_id", c.GetString(middleware.ContextRequestID)),
			zap.Error(err),
		)
		logger.Error("request failed", fields...)
		response.InternalError(c, err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathID 解析路径中的数字ID，非法时返回 404
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(c, "Not found")
		return 0, false
	}
	return uint(id), true
}

// hasBody 请求是否可能带有 body（含分块传输）
func hasBody(c *gin.Context) bool {
	return c.Request.Body != nil && c.Request.Body != http.NoBody && c.Request.ContentLength != 0
}

// pageQuery 通用分页参数
type pageQuery struct {
	Page    int `form:"page" binding:"omitempty,gte=1"`
	PerPage int `form:"per_page" binding:"omitempty,gte=1,lte=100"`
}

func (q pageQuery) page() service.Page { return service.Page{Page: q.Page, PerPage: q.PerPage} }
