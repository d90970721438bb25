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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unidesk/uniportal-api/api/swagger"
	"github.com/unidesk/uniportal-api/internal/handler"
	"github.com/unidesk/uniportal-api/internal/middleware"
	"github.com/unidesk/uniportal-api/internal/repository"
	"github.com/unidesk/uniportal-api/internal/service"
	"github.com/unidesk/uniportal-api/pkg/cache"
	"github.com/unidesk/uniportal-api/pkg/config"
	"github.com/unidesk/uniportal-api/pkg/database"
	"github.com/unidesk/uniportal-api/pkg/jobs"
	"github.com/unidesk/uniportal-api/pkg/logger"
	corsmiddleware "github.com/unidesk/uniportal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unidesk/uniportal-api/pkg/middleware/requestid"
)

// @title UniPortal API
// @version 1.0.0
// @description Scheduling administration portal for universities
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
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Session revocation and the approved-schedule cache degrade
		// gracefully without Redis.
		sugar.Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	programRepo := repository.NewProgramRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	facultyLoadRepo := repository.NewFacultyLoadRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	sessionStore := repository.NewSessionStore(redisClient)

	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, sessionStore, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenLifetime: cfg.JWT.ResetTokenLifetime,
		Issuer:             cfg.JWT.Issuer,
	})

	notificationService := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	userService := service.NewUserService(userRepo, programRepo, authService, validate, logr)
	departmentService := service.NewDepartmentService(departmentRepo, programRepo, validate, logr)
	programService := service.NewProgramService(programRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	roomService := service.NewRoomService(roomRepo, validate, logr)
	scheduleService := service.NewScheduleService(
		scheduleRepo,
		programRepo,
		userRepo,
		subjectRepo,
		roomRepo,
		cacheRepo,
		notificationService,
		validate,
		logr,
		service.ScheduleCacheConfig{Enabled: cfg.Cache.Enabled, TTL: cfg.Cache.ScheduleTTL},
	)
	facultyLoadService := service.NewFacultyLoadService(facultyLoadRepo, subjectRepo, userRepo, validate, logr)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	notificationService.Start(queueCtx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Users:         handler.NewUserHandler(userService),
		Departments:   handler.NewDepartmentHandler(departmentService, programRepo),
		Programs:      handler.NewProgramHandler(programService, programRepo),
		Subjects:      handler.NewSubjectHandler(subjectService),
		Rooms:         handler.NewRoomHandler(roomService),
		Schedules:     handler.NewScheduleHandler(scheduleService, metricsService),
		Notifications: handler.NewNotificationHandler(notificationService),
		FacultyLoads:  handler.NewFacultyLoadHandler(facultyLoadService),
		Metrics:       handler.NewMetricsHandler(metricsService),
		JWT:           middleware.JWT(authService),
		AccountGate:   middleware.AccountGate(userRepo, sessionStore, authService, cfg.Activation.ExemptPaths, logr),
		AuditRepo:     userRepo,
		ExportEnabled: cfg.Export.Enabled,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}

	stopQueue()
	notificationService.Stop()
	if err := cacheRepo.Close(); err != nil {
		sugar.Warnw("failed to close cache", "error", err)
	}
}
