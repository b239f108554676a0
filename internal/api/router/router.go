package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/classifieds-api/config"
	_ "github.com/d60-Lab/classifieds-api/docs"
	"github.com/d60-Lab/classifieds-api/internal/api/handler"
	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/pkg/auth"
)

// Setup 注册中间件与全部路由
func Setup(cfg *config.Config, h *handler.Handler, tokens *auth.TokenParser, limiter *middleware.RateLimiter) *gin.Engine {
	handler.UseJSONFieldNames()

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger())
	r.Use(middleware.ReportErrors())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("")
	api.Use(middleware.RateLimit(limiter))
	api.Use(gzip.Gzip(gzip.DefaultCompression))

	requireAuth := middleware.Auth(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)

	// 实时通信
	rt := api.Group("/auth", requireAuth)
	{
		rt.GET("/ably-token", h.AblyToken)
		rt.GET("/ably-config", h.AblyConfig)
	}

	// 分类与商品
	api.GET("/categories", h.Categories)
	api.GET("/categories/stats", h.CategoryStats)
	api.GET("/category/:id/items", h.CategoryItems)
	api.GET("/subcategory/:id/items", h.SubCategoryItems)
	api.GET("/home", h.Home)
	api.GET("/items/:id", optionalAuth, h.ItemDetail)
	api.GET("/search", h.Search)

	// 法律文档
	legal := api.Group("/legal")
	{
		legal.GET("", h.LegalDocuments)
		legal.GET("/:document_type", h.LegalDocument)
		legal.POST("/agreement", requireAuth, h.AcceptAgreement)
		legal.GET("/agreements", requireAuth, h.Agreements)
		legal.GET("/agreement/status", requireAuth, h.AgreementStatus)
	}

	// 用户
	user := api.Group("/user", requireAuth)
	{
		user.GET("/history", h.ListHistory)
		user.POST("/history", h.CreateHistory)
		user.DELETE("/history", h.ClearHistory)
		user.GET("/history/stats", h.HistoryStats)
		user.POST("/history/bulk-delete", h.BulkDeleteHistory)
		user.GET("/history/:id", h.GetHistory)
		user.DELETE("/history/:id", h.DeleteHistory)

		user.GET("/profile", h.GetProfile)
		user.POST("/profile", h.UpdateProfile)
		user.POST("/fcm-token", h.UpdateFCMToken)
		user.GET("/notification-settings", h.GetNotificationSettings)
		user.POST("/notification-settings", h.UpdateNotificationSettings)
	}

	// 电子书
	books := api.Group("/api/pdf-books")
	{
		books.GET("", h.ListBooks)
		books.GET("/purchases", requireAuth, h.Purchases)
		books.POST("/deliver", requireAuth, h.Deliver)
		books.GET("/download/:token", h.Download)
		books.GET("/:id", optionalAuth, h.BookDetail)
		books.POST("/:id/purchase", requireAuth, h.PurchaseBook)
	}

	// 本地存储签名链接
	r.GET("/storage/*path", middleware.RateLimit(limiter), h.ServeFile)

	return r
}
