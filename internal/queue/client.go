package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/estatease/estatease/internal/config"
	"github.com/estatease/estatease/internal/queue/handlers"
	"github.com/estatease/estatease/internal/usecase"
)

// NewAssetColorsTask builds the colour extraction task for one asset.
func NewAssetColorsTask(t usecase.AssetType, id uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(handlers.AssetColorsPayload{
		AssetType: string(t),
		AssetID:   id.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(
		config.TASK_TYPE_ASSET_COLORS,
		payload,
		asynq.Queue("low"),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	), nil
}

// Client wraps asynq.Client for enqueuing tasks
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewClient creates a new queue client
func NewClient(redisAddr string, redisPassword string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
	})

	return &Client{
		client: client,
		logger: logger,
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueAssetColors implements usecase.QueueClient.
func (c *Client) EnqueueAssetColors(ctx context.Context, t usecase.AssetType, id uuid.UUID) error {
	task, err := NewAssetColorsTask(t, id)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.InfoContext(ctx, "enqueued task",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("type", task.Type()),
	)
	return nil
}
