package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/hcf-itd/asset-registry-api/api/swagger"
	"github.com/hcf-itd/asset-registry-api/internal/handler"
	"github.com/hcf-itd/asset-registry-api/internal/middleware"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	"github.com/hcf-itd/asset-registry-api/internal/repository"
	"github.com/hcf-itd/asset-registry-api/internal/service"
	"github.com/hcf-itd/asset-registry-api/pkg/cache"
	"github.com/hcf-itd/asset-registry-api/pkg/config"
	"github.com/hcf-itd/asset-registry-api/pkg/database"
	"github.com/hcf-itd/asset-registry-api/pkg/logger"
	corsmiddleware "github.com/hcf-itd/asset-registry-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hcf-itd/asset-registry-api/pkg/middleware/requestid"
	"github.com/hcf-itd/asset-registry-api/pkg/qr"
	"github.com/hcf-itd/asset-registry-api/pkg/storage"
)

// @title Asset Registry API
// @version 1.0.0
// @description IT asset and license tracking for healthcare facilities
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	assetStorage, err := storage.NewLocalStorage(cfg.Assets.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init asset storage", "error", err)
	}
	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}

	assetRepo := repository.NewAssetRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	reportRepo := repository.NewReportRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, logr)

	authSvc := service.NewAuthService(userRepo, logr, service.AuthServiceConfig{
		JWTSecret:         cfg.JWT.Secret,
		AccessExpiration:  cfg.JWT.Expiration,
		RefreshExpiration: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(userRepo, logr)
	qrSvc := service.NewQRService(assetRepo, assetStorage, qr.NewEncoder(cfg.QR.ImageSize), userRepo, logr, service.QRServiceConfig{
		PublicOrigin:   cfg.QR.PublicOrigin,
		WarnSizeBytes:  cfg.QR.WarnSizeBytes,
		AbortSizeBytes: cfg.QR.AbortSizeBytes,
	})
	reportSvc := service.NewReportService(reportRepo, assetRepo, assetStorage, userRepo, logr, cfg.Assets.MaxImageSizeBytes)
	assetSvc := service.NewAssetService(assetRepo, reportRepo, qrSvc, userRepo, cacheSvc, logr)
	deletionSvc := service.NewDeletionService(assetRepo, archiveRepo, userRepo, assetStorage, userRepo, cacheSvc, logr)
	var dashboardSvc *service.DashboardService
	if cfg.Dashboard.Enabled {
		dashboardSvc = service.NewDashboardService(assetRepo, reportRepo, cacheSvc, logr, cfg.Dashboard.CacheTTL)
	} else {
		dashboardSvc = service.NewDashboardService(assetRepo, reportRepo, nil, logr, cfg.Dashboard.CacheTTL)
	}

	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportRepo, assetRepo, exportStorage, signer, userRepo, logr, service.ExportServiceConfig{
		APIPrefix:       cfg.APIPrefix,
		Workers:         cfg.Exports.WorkerConcurrency,
		MaxRetries:      cfg.Exports.WorkerRetries,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	if cfg.Exports.Enabled {
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	assetHandler := handler.NewAssetHandler(assetSvc, qrSvc, deletionSvc)
	archiveHandler := handler.NewArchiveHandler(deletionSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/register", userHandler.Register)

	// Download links carry their own signed token, no JWT needed.
	api.GET("/exports/:id/download", exportHandler.Download)

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.PUT("/auth/password", authHandler.ChangePassword)

		authed.GET("/users/me", userHandler.Me)
		authed.PUT("/users/me", userHandler.UpdateProfile)

		authed.GET("/assets", assetHandler.List)
		authed.POST("/assets", assetHandler.Create)
		authed.GET("/assets/:id", assetHandler.Get)
		authed.PUT("/assets/:id", assetHandler.Update)
		authed.DELETE("/assets/:id", assetHandler.Delete)
		authed.POST("/assets/:id/qr", assetHandler.MaterializeQR)
		authed.DELETE("/assets/:id/qr", assetHandler.DisableQR)

		authed.POST("/reports", reportHandler.Create)
		authed.GET("/reports", reportHandler.List)

		authed.GET("/archive", archiveHandler.List)
		authed.GET("/archive/:id", archiveHandler.Get)

		authed.GET("/dashboard/summary", dashboardHandler.Summary)

		authed.POST("/exports", exportHandler.Request)
		authed.GET("/exports", exportHandler.ListMine)
		authed.GET("/exports/:id", exportHandler.Get)

		authed.GET("/metrics/snapshot", metricsHandler.Snapshot)

		admin := authed.Group("", middleware.RequireRoles(models.RoleSuperAdmin))
		{
			admin.GET("/users", userHandler.List)
			admin.POST("/users/:id/approve", userHandler.Approve)
			admin.POST("/users/:id/reject", userHandler.Reject)
			admin.DELETE("/archive/:id",
				middleware.Audit(userRepo, models.AuditArchivePurge, "archive"), archiveHandler.Purge)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
