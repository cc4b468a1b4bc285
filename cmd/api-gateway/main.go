package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/literacy-tracker-api/api/swagger"
	"github.com/noah-isme/literacy-tracker-api/internal/handler"
	"github.com/noah-isme/literacy-tracker-api/internal/middleware"
	"github.com/noah-isme/literacy-tracker-api/internal/repository"
	"github.com/noah-isme/literacy-tracker-api/internal/service"
	redisclient "github.com/noah-isme/literacy-tracker-api/pkg/cache"
	"github.com/noah-isme/literacy-tracker-api/pkg/config"
	"github.com/noah-isme/literacy-tracker-api/pkg/database"
	"github.com/noah-isme/literacy-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/literacy-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/literacy-tracker-api/pkg/middleware/requestid"
	"github.com/noah-isme/literacy-tracker-api/pkg/stream"
)

// @title Literacy Tracker API
// @version 1.0.0
// @description Classroom literacy assessment tracking
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Dashboard.CacheEnabled {
		redis, err := redisclient.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, derived reads run uncached", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(redis, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
		}
	}

	broker := stream.NewBroker(cfg.Refresh.BufferSize, logr)
	defer broker.Close()

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	classSvc := service.NewClassService(classRepo, studentRepo, broker, metricsSvc, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, broker, metricsSvc, nil, logr)
	assessmentSvc := service.NewAssessmentService(studentRepo, classRepo, broker, metricsSvc, nil, logr)
	statsSvc := service.NewStatsService(studentRepo, classRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	progressSvc := service.NewProgressService(studentRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(classRepo, studentRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refreshSvc := service.NewRefreshService(broker, cacheSvc, metricsSvc, cfg.Refresh.DebounceWindow, logr)
	if cacheSvc.Enabled() {
		refreshSvc.Start(ctx)
		defer refreshSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	classHandler := handler.NewClassHandler(classSvc, studentSvc, statsSvc, progressSvc, exportSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, assessmentSvc, progressSvc)
	dashboardHandler := handler.NewDashboardHandler(statsSvc, progressSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		classes := protected.Group("/classes")
		{
			classes.GET("", classHandler.List)
			classes.POST("", classHandler.Create)
			classes.GET("/:id", classHandler.Get)
			classes.PATCH("/:id", classHandler.Update)
			classes.DELETE("/:id", classHandler.Delete)
			classes.GET("/:id/students", classHandler.Students)
			classes.GET("/:id/statistics", classHandler.Statistics)
			classes.GET("/:id/progress", classHandler.Progress)
			if cfg.Exports.Enabled {
				classes.GET("/:id/export", classHandler.Export)
			}
		}

		students := protected.Group("/students")
		{
			students.GET("", studentHandler.List)
			students.POST("", studentHandler.Create)
			students.GET("/:id", studentHandler.Get)
			students.PATCH("/:id", studentHandler.Update)
			students.DELETE("/:id", studentHandler.Delete)
			students.POST("/:id/assessments", studentHandler.RecordAssessment)
			students.GET("/:id/progress", studentHandler.Progress)
		}

		dashboard := protected.Group("/dashboard")
		{
			dashboard.GET("/statistics", dashboardHandler.Statistics)
			dashboard.GET("/progress", dashboardHandler.Progress)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
