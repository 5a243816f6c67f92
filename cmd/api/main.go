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

	_ "github.com/uniexam/exam-scheduler-api/api/swagger"
	"github.com/uniexam/exam-scheduler-api/internal/handler"
	"github.com/uniexam/exam-scheduler-api/internal/middleware"
	"github.com/uniexam/exam-scheduler-api/internal/models"
	"github.com/uniexam/exam-scheduler-api/internal/repository"
	"github.com/uniexam/exam-scheduler-api/internal/service"
	"github.com/uniexam/exam-scheduler-api/pkg/cache"
	"github.com/uniexam/exam-scheduler-api/pkg/config"
	"github.com/uniexam/exam-scheduler-api/pkg/database"
	"github.com/uniexam/exam-scheduler-api/pkg/jobs"
	"github.com/uniexam/exam-scheduler-api/pkg/logger"
	corsmiddleware "github.com/uniexam/exam-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uniexam/exam-scheduler-api/pkg/middleware/requestid"
	"github.com/uniexam/exam-scheduler-api/pkg/storage"
)

// @title Exam Scheduler API
// @version 1.0.0
// @description Exam timetabling, seating plans and report exports for a university examination office
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close()
		}
	}

	// Repositories.
	courseRepo := repository.NewCourseRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	examRepo := repository.NewExamRepository(db)
	seatingRepo := repository.NewSeatingRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
	}

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, nil, logr)
	rosterSvc := service.NewRosterImportService(studentRepo, enrollmentRepo, courseRepo, logr)
	schedulerSvc := service.NewExamSchedulerService(
		courseRepo, classroomRepo, enrollmentRepo, examRepo,
		cacheSvc, metricsSvc, nil, logr, cfg.Scheduler)
	seatingSvc := service.NewSeatingService(
		examRepo, classroomRepo, enrollmentRepo, seatingRepo,
		metricsSvc, nil, logr, cfg.Seating)

	// Report pipeline.
	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(
			examRepo, seatingRepo, fileStore, signer,
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
			logr, nil, nil, nil)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc = service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})

		queueCtx, stopQueue := context.WithCancel(context.Background())
		defer stopQueue()
		queue.Start(queueCtx)
		defer queue.Stop()
		reportSvc.RecoverPendingJobs(queueCtx)
		reportSvc.StartCleanup(queueCtx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, rosterSvc)
	scheduleHandler := handler.NewExamScheduleHandler(schedulerSvc, cacheSvc)
	seatingHandler := handler.NewSeatingHandler(seatingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.PUT("/auth/password", authHandler.ChangePassword)

		protected.GET("/courses", courseHandler.List)
		protected.GET("/courses/:id", courseHandler.Get)
		protected.GET("/classrooms", classroomHandler.List)
		protected.GET("/classrooms/:id", classroomHandler.Get)
		protected.GET("/students", studentHandler.List)
		protected.GET("/students/:id", studentHandler.Get)
		protected.GET("/schedule", scheduleHandler.List)
		protected.GET("/seating", seatingHandler.Plan)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator))
	{
		admin.POST("/courses", courseHandler.Create)
		admin.PUT("/courses/:id", courseHandler.Update)
		admin.DELETE("/courses/:id", courseHandler.Delete)
		admin.POST("/courses/:id/roster", studentHandler.ImportRoster)

		admin.POST("/classrooms", classroomHandler.Create)
		admin.PUT("/classrooms/:id", classroomHandler.Update)
		admin.DELETE("/classrooms/:id", classroomHandler.Delete)

		admin.POST("/students", studentHandler.Create)
		admin.PUT("/students/:id", studentHandler.Update)
		admin.DELETE("/students/:id", studentHandler.Delete)
		admin.POST("/students/:id/enrollments", studentHandler.Enroll)
		admin.DELETE("/enrollments/:enrollmentId", studentHandler.Unenroll)

		admin.POST("/schedule/generate", scheduleHandler.Generate)
		admin.DELETE("/schedule/:category", scheduleHandler.DeleteCategory)
		admin.POST("/seating/generate", seatingHandler.Generate)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		api.GET("/reports/download/:token", reportHandler.Download)
		reports := api.Group("/reports")
		reports.Use(middleware.JWT(authSvc))
		{
			reports.POST("", reportHandler.Create)
			reports.GET("/jobs/:id", reportHandler.Status)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
