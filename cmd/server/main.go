package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/config"
	"github.com/d60-Lab/classifieds-api/internal/api/handler"
	"github.com/d60-Lab/classifieds-api/internal/api/middleware"
	"github.com/d60-Lab/classifieds-api/internal/api/router"
	"github.com/d60-Lab/classifieds-api/internal/repository"
	"github.com/d60-Lab/classifieds-api/internal/service"
	"github.com/d60-Lab/classifieds-api/pkg/auth"
	"github.com/d60-Lab/classifieds-api/pkg/cache"
	"github.com/d60-Lab/classifieds-api/pkg/database"
	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/realtime"
	"github.com/d60-Lab/classifieds-api/pkg/response"
	"github.com/d60-Lab/classifieds-api/pkg/storage"
	"github.com/d60-Lab/classifieds-api/pkg/tracing"
)

// @title Classifieds API
// @version 1.0
// @description 分类信息市场移动端 API
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	response.SetDebug(cfg.App.Debug)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Env)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.App.Env,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Warn("sentry disabled", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// 缓存降级为直接查库
		logger.Warn("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	c := cache.New(rdb, cfg.App.Name)

	store, err := storage.New(ctx, cfg.Storage, cfg.App.BaseURL)
	if err != nil {
		logger.Fatal("init storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	var files *storage.Local
	switch s := store.(type) {
	case *storage.Local:
		files = s
	case *storage.GCS:
		defer func() { _ = s.Close() }()
	}

	issuer, err := realtime.NewIssuer(cfg.Ably.APIKey, cfg.Ably.TokenTTL)
	if err != nil {
		logger.Warn("realtime tokens disabled", zap.Error(err))
		issuer = nil
	}

	items := repository.NewItemRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	recorder := service.NewHistoryRecorder(historyRepo, 4096)
	stopRecorder := recorder.Start(4)

	h := handler.NewHandler(handler.Services{
		Catalog:  service.NewCatalogService(items, repository.NewCategoryRepository(db), c, cfg.Cache),
		Search:   service.NewSearchService(items),
		History:  service.NewHistoryService(historyRepo),
		Legal:    service.NewLegalService(repository.NewLegalRepository(db), c, cfg.Cache.LegalTTL),
		PdfBooks: service.NewPdfBookService(repository.NewPdfBookRepository(db), store, cfg.PDF, cfg.Storage.LinkTTL),
		Profile:  service.NewProfileService(repository.NewUserRepository(db), store),
		Realtime: service.NewRealtimeService(issuer, cfg.App.BaseURL),
		Recorder: recorder,
	}, files, db, c)

	tokens := auth.NewTokenParser(cfg.JWT.Secret, cfg.JWT.Issuer)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	stopCleanup := make(chan struct{})
	go limiter.Run(time.Minute, stopCleanup)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router.Setup(cfg, h, tokens, limiter),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	close(stopCleanup)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopRecorder(shutdownCtx); err != nil {
		logger.Error("history recorder shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
