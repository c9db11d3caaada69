package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/genlink/genlink-api/api/swagger"
	"github.com/genlink/genlink-api/internal/handler"
	"github.com/genlink/genlink-api/internal/middleware"
	"github.com/genlink/genlink-api/internal/repository"
	"github.com/genlink/genlink-api/internal/service"
	"github.com/genlink/genlink-api/pkg/cache"
	"github.com/genlink/genlink-api/pkg/config"
	"github.com/genlink/genlink-api/pkg/database"
	"github.com/genlink/genlink-api/pkg/logger"
	corsmiddleware "github.com/genlink/genlink-api/pkg/middleware/cors"
	reqidmiddleware "github.com/genlink/genlink-api/pkg/middleware/requestid"
)

// @title GenLink API
// @version 1.0.0
// @description Volunteer coordination backend: report intake, assignment and availability
// @BasePath /api/v1
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	volunteerRepo := repository.NewVolunteerRepository(db)
	reportRepo := repository.NewReportRepository(db)
	reportTypeRepo := repository.NewReportTypeRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	authSvc := service.NewAuthService(volunteerRepo, tokenRepo, cfg.JWT, validate, logr)
	activitySvc := service.NewActivityService(volunteerRepo, cacheRepo, metrics, logr, cfg.Availability.Timezone)
	volunteerSvc := service.NewVolunteerService(volunteerRepo, activitySvc, validate, logr)
	reportSvc := service.NewReportService(reportRepo, reportTypeRepo, volunteerRepo, cacheRepo, activitySvc, metrics, validate, logr, service.ReportServiceConfig{
		RequireActiveVolunteer: cfg.Stats.RequireActiveVolunteer,
		CacheTTL:               cfg.Stats.CacheTTL,
	})
	assignmentSvc := service.NewAssignmentService(assignmentRepo, cacheRepo, metrics, logr)
	reportTypeSvc := service.NewReportTypeService(reportTypeRepo, validate, logr)
	exportSvc := service.NewExportService(reportRepo, logr, service.ExportServiceConfig{
		Enabled: cfg.Exports.Enabled,
		MaxRows: cfg.Exports.MaxRows,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	volunteerHandler := handler.NewVolunteerHandler(volunteerSvc, activitySvc)
	reportHandler := handler.NewReportHandler(reportSvc, assignmentSvc, exportSvc)
	reportTypeHandler := handler.NewReportTypeHandler(reportTypeSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	volunteers := api.Group("/volunteers")
	{
		volunteers.GET("/active", volunteerHandler.Active)
		volunteers.GET("", middleware.JWT(authSvc), volunteerHandler.List)
		volunteers.GET("/me", middleware.JWT(authSvc), volunteerHandler.Me)
		volunteers.PUT("/me", middleware.JWT(authSvc), volunteerHandler.UpdateMe)
		volunteers.PUT("/me/active", middleware.JWT(authSvc), volunteerHandler.SetActive)
		volunteers.DELETE("/me", middleware.JWT(authSvc), volunteerHandler.DeleteMe)
	}

	reports := api.Group("/reports")
	{
		reports.POST("", reportHandler.Create)
		reports.GET("/statistics", reportHandler.Statistics)
		reports.GET("/average-response", reportHandler.AverageResponse)

		reports.GET("", middleware.JWT(authSvc), reportHandler.ListPending)
		reports.GET("/my/accepted", middleware.JWT(authSvc), reportHandler.MyAccepted)
		reports.GET("/my/completed", middleware.JWT(authSvc), reportHandler.MyCompleted)
		reports.GET("/my/completed/export", middleware.JWT(authSvc), reportHandler.ExportCompleted)
		reports.POST("/active/cancel", middleware.JWT(authSvc), reportHandler.CancelActive)
		reports.POST("/active/complete", middleware.JWT(authSvc), reportHandler.CompleteActive)
		reports.GET("/:id", middleware.JWT(authSvc), reportHandler.Get)
		reports.POST("/:id/accept", middleware.JWT(authSvc), reportHandler.Accept)
	}

	reportTypes := api.Group("/report-types")
	{
		reportTypes.GET("", reportTypeHandler.List)
		reportTypes.POST("", middleware.JWT(authSvc), reportTypeHandler.Create)
		reportTypes.DELETE("/:id", middleware.JWT(authSvc), reportTypeHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}
