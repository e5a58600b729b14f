// File: teemarker/main.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"teemarker/config"
	"teemarker/cron"
	"teemarker/database"
	"teemarker/database/repository"
	"teemarker/database/repository/memory"
	"teemarker/database/seed"
	"teemarker/handlers"
	"teemarker/middleware"
	"teemarker/routes"
	"teemarker/services/adapters"
	"teemarker/services/checker"
	"teemarker/services/notification"
	"teemarker/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const memoryDatabaseScheme = "memory://"

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("main: JWT_SECRET is not set, authenticated endpoints will reject every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories.
	var repos repository.Repositories
	if strings.HasPrefix(cfg.DatabaseURL, memoryDatabaseScheme) {
		logger.Warn("main: using in-memory storage, data is lost on restart")
		repos = memory.NewRepositories()
		if _, err := seed.Courses(ctx, repos.Courses); err != nil {
			logger.Fatal("main: failed to seed sample courses", zap.Error(err))
		}
	} else {
		database.InitDB()
		db := database.DB()
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			logger.Fatal("main: failed to create indexes", zap.Error(err))
		}
		repos = repository.NewMongoRepositories(db)
	}

	if err := utils.InitCache(); err != nil {
		logger.Fatal("main: failed to connect to Redis", zap.Error(err))
	}

	// services.
	registry := adapters.NewDefaultRegistry(
		adapters.Deps{
			Logger:               logger,
			Timeout:              cfg.AdapterTimeout,
			FrancisByrneUsername: cfg.FrancisByrneUsername,
			FrancisByrnePassword: cfg.FrancisByrnePassword,
		},
		adapters.Settings{
			CallTimeout:       cfg.DispatchTimeout,
			RequestsPerMinute: cfg.PlatformRequestsPerMin,
		},
	)
	logger.Info("main: platform adapters registered", zap.Strings("platforms", registry.SupportedPlatforms()))

	notificationService, err := notification.NewDefaultNotificationService(repos.Notifications, logger)
	if err != nil {
		logger.Fatal("main: failed to initialize notification service", zap.Error(err))
	}

	checkService := &checker.DefaultCheckService{
		Automations: repos.Automations,
		Courses:     repos.Courses,
		TeeTimes:    repos.TeeTimes,
		Bookings:    repos.Bookings,
		Users:       repos.Users,
		Notifier:    notificationService,
		Dispatcher:  registry,
		Options: checker.Options{
			Fallback:          checker.ParseFallbackPolicy(cfg.FallbackPolicy),
			RecheckBeforeBook: cfg.RecheckBeforeBook,
		},
		Logger: logger.Named("checker"),
	}

	// background work.
	worker := cron.NewWorker(
		cron.WorkerConfig{Redis: utils.QueueRedisOpt(), Concurrency: cfg.WorkerConcurrency},
		&cron.CheckHandler{
			Checker:  checkService,
			Locker:   cron.NewRedisLocker(utils.CacheClient),
			LeaseTTL: cfg.CheckLeaseTTL,
			Logger:   logger.Named("check"),
		},
		logger,
	)
	worker.Start(func(err error) {
		logger.Error("main: check worker could not start, stopping", zap.Error(err))
		stop()
	})

	queue := asynq.NewClient(utils.QueueRedisOpt())
	defer queue.Close()
	sweeper := &cron.Sweeper{
		Automations: repos.Automations,
		Queue:       queue,
		Interval:    cfg.SweepInterval,
		TaskTimeout: cfg.CheckLeaseTTL,
		Logger:      logger.Named("sweeper"),
	}
	go sweeper.Run(ctx)
	go cron.MonitorRedis(ctx, utils.CacheClient, 10*time.Second, logger.Named("redis"))
	utils.StartHealthMonitor(ctx, time.Minute, []*redis.Client{utils.CacheClient}, database.MongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	handlerBundle := handlers.NewHandlerBundle(cfg.JWTSecret, repos, registry, notificationService)
	routes.RegisterRoutes(router, handlerBundle, cfg.AllowedOrigins())

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	worker.Shutdown()
	_ = utils.CacheClient.Close()
	if database.MongoClient != nil {
		_ = database.MongoClient.Disconnect(shutdownCtx)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
