package queue

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/estatease/estatease/internal/config"
)

// SweepSpec is the cron spec of the asset colour sweep.
const SweepSpec = "@every 1h"

// Scheduler periodically enqueues maintenance tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s := asynq.NewScheduler(RedisOptFromEnv(), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   slogAsynqLogger{logger},
	})

	task := asynq.NewTask(config.TASK_TYPE_ASSET_COLORS_SWEEP, nil, asynq.Queue("low"), asynq.MaxRetry(0))
	entryID, err := s.Register(SweepSpec, task)
	if err != nil {
		return nil, err
	}
	logger.Info("Scheduler registered task",
		slog.String("entry_id", entryID),
		slog.String("type", task.Type()),
		slog.String("spec", SweepSpec),
	)

	return &Scheduler{scheduler: s, logger: logger}, nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	s.scheduler.Shutdown()
}
