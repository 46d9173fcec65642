package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/estatease/estatease/internal/config"
	"github.com/estatease/estatease/internal/queue"
	"github.com/estatease/estatease/internal/telemetry"
)

func main() {
	var mode = flag.String("mode", "worker", "Mode to run: 'worker', 'scheduler'")
	flag.Parse()

	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: telemetry.LevelFromString(os.Getenv(config.ENV_KEY_LOG_LEVEL)),
	})
	logger := slog.New(telemetry.NewTraceHandler(jsonHandler))
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(context.Background(), "estatease-worker")
	if err != nil {
		logger.Error("Failed to set up telemetry", slog.String("err", err.Error()))
		os.Exit(1)
	}

	code := 0
	if err := run(*mode, logger, waitForSignal); err != nil {
		logger.Error("Worker stopped with error", slog.String("mode", *mode), slog.String("err", err.Error()))
		code = 1
	}

	// os.Exit skips deferred calls, so flush first
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Telemetry shutdown error", slog.String("err", err.Error()))
	}
	cancel()

	os.Exit(code)
}

// run starts the given mode and blocks until wait returns.
func run(mode string, logger *slog.Logger, wait func()) error {
	switch mode {
	case "worker":
		return runWorker(logger, wait)
	case "scheduler":
		return runScheduler(logger, wait)
	default:
		return fmt.Errorf("invalid mode %q, use 'worker' or 'scheduler'", mode)
	}
}

func runWorker(logger *slog.Logger, wait func()) error {
	logger.Info("Starting in WORKER mode...")

	worker, err := queue.NewWorker(logger)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	// Start returns once the server runs; it does not block
	logger.Info("Starting Asynq worker...")
	if err := worker.Start(); err != nil {
		return fmt.Errorf("worker error: %w", err)
	}

	wait()

	logger.Info("Shutting down worker...")
	worker.Stop()
	logger.Info("Worker exited properly")
	return nil
}

func runScheduler(logger *slog.Logger, wait func()) error {
	logger.Info("Starting in SCHEDULER mode...")

	scheduler, err := queue.NewScheduler(logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	logger.Info("Starting Asynq scheduler...", slog.String("spec", queue.SweepSpec))
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler error: %w", err)
	}

	wait()

	logger.Info("Shutting down scheduler...")
	scheduler.Stop()
	logger.Info("Scheduler exited properly")
	return nil
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
