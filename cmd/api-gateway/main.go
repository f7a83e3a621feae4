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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mathfacts-api/api/swagger"
	"github.com/noah-isme/mathfacts-api/internal/handler"
	"github.com/noah-isme/mathfacts-api/internal/middleware"
	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/internal/repository"
	"github.com/noah-isme/mathfacts-api/internal/service"
	"github.com/noah-isme/mathfacts-api/pkg/cache"
	"github.com/noah-isme/mathfacts-api/pkg/config"
	"github.com/noah-isme/mathfacts-api/pkg/database"
	"github.com/noah-isme/mathfacts-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mathfacts-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mathfacts-api/pkg/middleware/requestid"
)

// @title Math Facts Mastery API
// @version 0.1.0
// @description Timed math-fact assessments and per-operation mastery progression
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, policy cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	r := newRouter(cfg, logr, db, cacheRepo, metricsSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}

func newRouter(
	cfg *config.Config,
	logr *zap.Logger,
	db *sqlx.DB,
	cacheRepo *repository.CacheRepository,
	metricsSvc *service.MetricsService,
) *gin.Engine {
	validate := validator.New()

	students := repository.NewStudentRepository(db)
	classrooms := repository.NewClassroomRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	policies := repository.NewPolicyRepository(db)
	progress := repository.NewProgressRepository(db)
	attempts := repository.NewAttemptRepository(db)
	audits := repository.NewAuditRepository(db)

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})
	policySvc := service.NewPolicyService(policies, classrooms, cacheRepo, metricsSvc, cfg.Policy.CacheTTL, validate, logr)
	progressionSvc := service.NewProgressionService(progress, students, policySvc, policySvc, metricsSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignments, students, attempts, policySvc, progressionSvc, metricsSvc,
		service.AssessmentConfig{
			DefaultNumQuestions: cfg.Assessment.DefaultNumQuestions,
			MaxNumQuestions:     cfg.Assessment.MaxNumQuestions,
		}, logr)

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if cfg.Redis.Enabled {
		checks["redis"] = cacheRepo.Ping
	}

	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, logr)
	progressHandler := handler.NewProgressHandler(progressionSvc)
	policyHandler := handler.NewPolicyHandler(policySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Docs.Enabled || cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	student := api.Group("/student", middleware.RequireRoles(models.RoleStudent))
	student.GET("/assignments/:id", assignmentHandler.Load)
	student.POST("/assignments/:id/submit", assignmentHandler.Submit)
	student.GET("/progress", progressHandler.Mine)

	classroom := api.Group("/classrooms/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	classroom.GET("/policy", policyHandler.Get)
	classroom.PUT("/policy", middleware.Audit(audits, logr, models.AuditActionPolicyUpdate), policyHandler.Update)
	classroom.POST("/students/:studentId/placement", middleware.Audit(audits, logr, models.AuditActionPlacement), progressHandler.Place)
	classroom.POST("/students/:studentId/mastery", middleware.Audit(audits, logr, models.AuditActionMasteryOverride), progressHandler.Mastery)

	return r
}
