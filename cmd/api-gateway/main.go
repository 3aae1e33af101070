package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/noc-portal-api/api/swagger"
	"github.com/noah-isme/noc-portal-api/internal/handler"
	"github.com/noah-isme/noc-portal-api/internal/middleware"
	"github.com/noah-isme/noc-portal-api/internal/models"
	"github.com/noah-isme/noc-portal-api/internal/repository"
	"github.com/noah-isme/noc-portal-api/internal/seed"
	"github.com/noah-isme/noc-portal-api/internal/service"
	"github.com/noah-isme/noc-portal-api/pkg/cache"
	"github.com/noah-isme/noc-portal-api/pkg/config"
	"github.com/noah-isme/noc-portal-api/pkg/database"
	"github.com/noah-isme/noc-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/noc-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/noc-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/noc-portal-api/pkg/storage"
)

// @title NOC Portal API
// @version 1.0.0
// @description Internship No Objection Certificate request tracking
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	ctx := context.Background()
	if err := seed.EnsureSchema(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to prepare schema", "error", err)
	}
	if cfg.Seed.DemoData {
		if err := seed.Demo(ctx, db, logr); err != nil {
			logr.Sugar().Fatalw("failed to seed demo data", "error", err)
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
	} else {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()
	userRepo := repository.NewUserRepository(db)
	nocRepo := repository.NewNocRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	directorySvc := service.NewDirectoryService(userRepo, logr)
	nocSvc := service.NewNocService(nocRepo, directorySvc, cacheSvc, metricsSvc, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare certificate storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
	certSvc := service.NewCertificateService(nocSvc, store, signer, metricsSvc, logr, service.CertificateConfig{
		CleanupInterval:   cfg.Certificates.CleanupInterval,
		ArtifactTTL:       cfg.Certificates.SignedURLTTL,
		WorkerConcurrency: cfg.Certificates.WorkerConcurrency,
		WorkerRetries:     cfg.Certificates.WorkerRetries,
	})
	certSvc.Start(ctx)
	defer certSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	nocHandler := handler.NewNocHandler(nocSvc)
	certHandler := handler.NewCertificateHandler(certSvc)
	directoryHandler := handler.NewDirectoryHandler(directorySvc)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))

		protected.GET("/faculty", directoryHandler.ListFaculty)
		protected.GET("/dashboard/summary", nocHandler.Summary)

		noc := protected.Group("/noc-requests")
		noc.POST("", middleware.RequireRoles(models.RoleStudent), nocHandler.Create)
		noc.GET("", nocHandler.List)
		noc.GET("/:id", nocHandler.Get)
		noc.PATCH("/:id", middleware.RequireRoles(models.RoleFaculty), nocHandler.UpdateStatus)
		noc.GET("/:id/certificate", certHandler.Text)
		noc.POST("/:id/certificate/download", certHandler.RequestDownload)

		protected.GET("/certificates/download", certHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
