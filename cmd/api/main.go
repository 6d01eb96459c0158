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

	_ "github.com/campuskit/registrar-api/api/swagger"
	"github.com/campuskit/registrar-api/internal/handler"
	"github.com/campuskit/registrar-api/internal/middleware"
	"github.com/campuskit/registrar-api/internal/models"
	"github.com/campuskit/registrar-api/internal/repository"
	"github.com/campuskit/registrar-api/internal/service"
	rediscache "github.com/campuskit/registrar-api/pkg/cache"
	"github.com/campuskit/registrar-api/pkg/config"
	"github.com/campuskit/registrar-api/pkg/database"
	"github.com/campuskit/registrar-api/pkg/jobs"
	"github.com/campuskit/registrar-api/pkg/logger"
	corsmiddleware "github.com/campuskit/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/registrar-api/pkg/middleware/requestid"
	"github.com/campuskit/registrar-api/pkg/storage"
)

// @title Registrar API
// @version 1.0.0
// @description Course management and enrollment service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := rediscache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	gradeSvc := service.NewGradeService(enrollmentRepo, studentRepo, cacheSvc, cfg.Registrar.ProbationCutoff, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, gradeSvc, cfg.Registrar.TermCreditLimit, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, professorRepo, enrollmentRepo, cfg.Registrar.MaxTeachingLoad, validate, logr)
	professorSvc := service.NewProfessorService(professorRepo, courseRepo, validate, logr)
	transcriptSvc := service.NewTranscriptService(studentRepo, enrollmentRepo, cacheSvc, cfg.Cache.TTL, store, signer, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	}, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Exports.Enabled {
		transcriptSvc.Start(ctx)
		defer transcriptSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, transcriptSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	professorHandler := handler.NewProfessorHandler(professorSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, gradeSvc, metricsSvc)
	transcriptHandler := handler.NewTranscriptHandler(transcriptSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
	api.POST("/auth/logout", middleware.JWT(authSvc), authHandler.Logout)

	authed := api.Group("", middleware.JWT(authSvc))
	write := authed.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar))

	authed.GET("/students", studentHandler.List)
	authed.GET("/students/:id", studentHandler.Get)
	authed.GET("/students/:id/enrollments", studentHandler.Enrollments)
	authed.GET("/students/:id/transcript", studentHandler.Transcript)
	write.POST("/students", studentHandler.Create)
	write.PUT("/students/:id", studentHandler.Update)
	write.DELETE("/students/:id", studentHandler.Delete)
	if cfg.Exports.Enabled {
		write.POST("/students/:id/transcript/export", transcriptHandler.RequestExport)
	}

	authed.GET("/courses", courseHandler.List)
	authed.GET("/courses/:id", courseHandler.Get)
	authed.GET("/courses/:id/roster", courseHandler.Roster)
	write.POST("/courses", courseHandler.Create)
	write.PUT("/courses/:id", courseHandler.Update)
	write.DELETE("/courses/:id", courseHandler.Delete)

	authed.GET("/professors", professorHandler.List)
	authed.GET("/professors/:id", professorHandler.Get)
	authed.GET("/professors/:id/courses", professorHandler.Courses)
	write.POST("/professors", professorHandler.Create)
	write.PUT("/professors/:id", professorHandler.Update)
	write.DELETE("/professors/:id", professorHandler.Delete)

	authed.GET("/enrollments", enrollmentHandler.List)
	write.POST("/enrollments", enrollmentHandler.Enroll)
	write.DELETE("/enrollments/:studentId/:courseId", enrollmentHandler.Withdraw)
	write.POST("/enrollments/:studentId/:courseId/complete", enrollmentHandler.Complete)
	write.PUT("/enrollments/:studentId/:courseId/grade", enrollmentHandler.SetGrade)

	if cfg.Exports.Enabled {
		authed.GET("/transcripts/exports/:exportId", transcriptHandler.ExportStatus)
		api.GET("/transcripts/downloads/:token", transcriptHandler.Download)
	}

	authed.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
