package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"threadline/internal/cache"
	"threadline/internal/config"
	"threadline/internal/db"
	"threadline/internal/handlers"
	"threadline/internal/logging"
	"threadline/internal/middleware"
	"threadline/internal/router"
	"threadline/internal/services"
	"threadline/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize Database
	conn, err := db.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn, false); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
	}

	checks := map[string]handlers.Check{"database": pingDB(conn)}
	threadCache, closeCache := openCache(cfg, logger, checks)
	defer closeCache()

	comments := store.NewCommentStore(conn)
	directory := store.NewDirectory(conn)
	commentSvc := services.NewCommentService(services.CommentDeps{
		Comments: comments,
		Posts:    directory,
		Users:    directory,
		Leads:    services.NewLeadCapture(store.NewLeadStore(conn), cfg.LeadTTL, logger.Named("leads")),
		Cache:    threadCache,
		CacheTTL: cfg.CacheTTL,
		Logger:   logger.Named("comments"),
	})
	statsSvc := services.NewStatsService(comments, directory)

	// Initialize Gin
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recovery(logger))

	// Setup Sessions
	r.Use(sessions.Sessions(cfg.SessionName, cookie.NewStore([]byte(cfg.SessionSecret))))
	r.Use(middleware.LoadUser(directory))

	router.RegisterRoutes(r, router.Handlers{
		Comments: handlers.NewCommentHandler(commentSvc),
		Admin:    handlers.NewAdminHandler(commentSvc, statsSvc),
		Health:   handlers.NewHealthHandler(checks),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("threadline server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// openCache picks the thread view cache. The in-process LRU is only
// coherent for a single instance, so an unreachable Redis disables caching.
func openCache(cfg config.Config, logger *zap.Logger, checks map[string]handlers.Check) (cache.Cache, func()) {
	noClose := func() {}
	switch cfg.CacheBackend {
	case "redis":
		rc, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, thread cache disabled", zap.Error(err))
			return cache.Noop{}, noClose
		}
		logger.Info("using redis for thread cache")
		checks["redis"] = rc.Ping
		return rc, func() { _ = rc.Close() }
	case "memory":
		lru, err := cache.NewLRU(cfg.CacheSize)
		if err != nil {
			logger.Warn("memory cache disabled", zap.Error(err))
			return cache.Noop{}, noClose
		}
		logger.Info("using in-process thread cache")
		return lru, noClose
	default:
		return cache.Noop{}, noClose
	}
}

func pingDB(conn *gorm.DB) handlers.Check {
	return func(ctx context.Context) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
