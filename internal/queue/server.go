package queue

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"github.com/estatease/estatease/internal/config"
	"github.com/estatease/estatease/internal/database"
	"github.com/estatease/estatease/internal/queue/handlers"
	"github.com/estatease/estatease/internal/usecase"
)

// RedisOptFromEnv reads REDIS_* into asynq connection options.
func RedisOptFromEnv() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: fmt.Sprintf("%s:%s",
			os.Getenv(config.ENV_KEY_REDIS_HOST),
			os.Getenv(config.ENV_KEY_REDIS_PORT),
		),
		Password: os.Getenv(config.ENV_KEY_REDIS_PASSWORD),
	}
}

// NewServeMux registers one handler per task type.
func NewServeMux(h *handlers.Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(config.TASK_TYPE_ASSET_COLORS, h.HandleAssetColors)
	mux.HandleFunc(config.TASK_TYPE_ASSET_COLORS_SWEEP, h.HandleAssetColorsSweep)
	return mux
}

// Worker represents a worker application with all its dependencies
type Worker struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
	client      *Client
	usecase     usecase.Usecase
	logger      *slog.Logger
}

// NewWorker creates a fully configured worker with all dependencies
func NewWorker(logger *slog.Logger) (*Worker, error) {
	logger.Info("Initializing worker dependencies...")

	gormDB, err := database.Open(database.DSNFromEnv(), logger)
	if err != nil {
		return nil, err
	}
	repo, err := database.New(gormDB)
	if err != nil {
		if sqlDB, dberr := gormDB.DB(); dberr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	redisOpt := RedisOptFromEnv()
	client := NewClient(redisOpt.Addr, redisOpt.Password, logger)

	// workers only read images back from their public URLs
	uc := usecase.New(repo, nil, client, nil, logger)

	workerConcurrency := 10
	if n, err := strconv.Atoi(os.Getenv(config.ENV_KEY_WORKER_CONCURRENCY)); err == nil && n > 0 {
		workerConcurrency = n
	}

	asynqServer := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: workerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger:   slogAsynqLogger{logger},
			LogLevel: asynq.InfoLevel,
		},
	)

	mux := NewServeMux(handlers.NewHandlers(uc, logger))

	logger.Info("Worker registered handlers",
		slog.Any("task_types", []string{config.TASK_TYPE_ASSET_COLORS, config.TASK_TYPE_ASSET_COLORS_SWEEP}))

	return &Worker{
		asynqServer: asynqServer,
		mux:         mux,
		client:      client,
		usecase:     uc,
		logger:      logger,
	}, nil
}

// Start starts the worker server
func (w *Worker) Start() error {
	w.logger.Info("Worker started successfully")
	return w.asynqServer.Start(w.mux)
}

// Stop stops the worker server gracefully
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.asynqServer.Shutdown()

	if err := w.client.Close(); err != nil {
		w.logger.Error("Error closing queue client", slog.String("err", err.Error()))
	}
	if err := w.usecase.Close(); err != nil {
		w.logger.Error("Error closing database", slog.String("err", err.Error()))
	}
}

// slogAsynqLogger adapts slog to asynq.Logger.
type slogAsynqLogger struct {
	l *slog.Logger
}

func (a slogAsynqLogger) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...)) }
func (a slogAsynqLogger) Info(args ...any)  { a.l.Info(fmt.Sprint(args...)) }
func (a slogAsynqLogger) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...)) }
func (a slogAsynqLogger) Error(args ...any) { a.l.Error(fmt.Sprint(args...)) }
func (a slogAsynqLogger) Fatal(args ...any) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
