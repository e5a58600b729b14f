package cron

import (
	"context"
	"time"

	"teemarker/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// WorkerConfig describes the asynq server that consumes check tasks.
type WorkerConfig struct {
	Redis       asynq.RedisClientOpt
	Concurrency int
}

// Worker consumes teetime:check tasks.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewWorker(cfg WorkerConfig, handler *CheckHandler, logger *zap.Logger) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	logger = logger.Named("worker")

	srv := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn("Task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeCheckAutomation, handler)

	return &Worker{srv: srv, mux: mux, logger: logger}
}

// Start runs the server in the background, retrying startup with backoff.
// onFatal is called when every attempt failed.
func (w *Worker) Start(onFatal func(error)) {
	go func() {
		w.logger.Info("Starting check worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("Failed to start worker",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if attempts == maxAttempts {
				if onFatal != nil {
					onFatal(err)
				}
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

// Shutdown waits for in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// MonitorRedis pings Redis periodically to detect failures at runtime.
func MonitorRedis(ctx context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	healthy := true

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := client.Ping(ctx).Err()
		switch {
		case err != nil && healthy && ctx.Err() == nil:
			logger.Warn("Redis connection lost", zap.Error(err))
			healthy = false
		case err == nil && !healthy:
			logger.Info("Redis connection restored")
			healthy = true
		}
	}
}
