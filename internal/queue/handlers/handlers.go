package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/estatease/estatease/internal/usecase"
)

// Usecase is the part of usecase.Usecase the worker runs.
type Usecase interface {
	ProcessAssetColors(ctx context.Context, t usecase.AssetType, id uuid.UUID) error
	SweepAssetColors(ctx context.Context) (int, error)
}

// Handlers contains all queue task handlers
type Handlers struct {
	usecase Usecase
	logger  *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(uc Usecase, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		usecase: uc,
		logger:  logger,
	}
}

// AssetColorsPayload identifies the asset whose primary image is analysed.
type AssetColorsPayload struct {
	AssetType string `json:"asset_type"`
	AssetID   string `json:"asset_id"`
}

// HandleAssetColors extracts and stores the dominant colours of an asset.
// Malformed payloads are not retried.
func (h *Handlers) HandleAssetColors(ctx context.Context, task *asynq.Task) error {
	var payload AssetColorsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	t, err := usecase.ParseAssetType(payload.AssetType)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(payload.AssetID)
	if err != nil {
		return fmt.Errorf("invalid asset id: %v: %w", err, asynq.SkipRetry)
	}

	h.logger.InfoContext(ctx, "processing asset colors", slog.String("asset_type", string(t)), slog.String("asset_id", id.String()))

	if err := h.usecase.ProcessAssetColors(ctx, t, id); err != nil {
		h.logger.ErrorContext(ctx, "asset colors failed", slog.String("asset_id", id.String()), slog.String("err", err.Error()))
		return err
	}
	return nil
}

// HandleAssetColorsSweep enqueues colour extraction for assets that missed it.
func (h *Handlers) HandleAssetColorsSweep(ctx context.Context, _ *asynq.Task) error {
	n, err := h.usecase.SweepAssetColors(ctx)
	if err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "asset colors sweep done", slog.Int("enqueued", n))
	return nil
}
