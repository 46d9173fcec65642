package usecase

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError is returned before any side effect happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AssetCreationError means nothing was persisted; the submission can be
// retried from scratch.
type AssetCreationError struct {
	AssetType AssetType
	Cause     error
}

func (e *AssetCreationError) Error() string {
	return fmt.Sprintf("create %s: %v", e.AssetType, e.Cause)
}

func (e *AssetCreationError) Unwrap() error { return e.Cause }

// ImageUploadError is recorded per file and never aborts a submission.
type ImageUploadError struct {
	Index int
	File  string
	Cause error
}

func (e *ImageUploadError) Error() string {
	return fmt.Sprintf("upload image %d (%s): %v", e.Index, e.File, e.Cause)
}

func (e *ImageUploadError) Unwrap() error { return e.Cause }

// ImageAttachError leaves the asset with uploaded but unlinked images.
type ImageAttachError struct {
	AssetID uuid.UUID
	URLs    []string
	Cause   error
}

func (e *ImageAttachError) Error() string {
	return fmt.Sprintf("attach %d images to asset %s: %v", len(e.URLs), e.AssetID, e.Cause)
}

func (e *ImageAttachError) Unwrap() error { return e.Cause }

// InvestmentCreationError leaves an orphan asset that no investment
// references. The asset is not deleted.
type InvestmentCreationError struct {
	AssetType AssetType
	AssetID   uuid.UUID
	Cause     error
}

func (e *InvestmentCreationError) Error() string {
	return fmt.Sprintf("create investment for %s %s: %v", e.AssetType, e.AssetID, e.Cause)
}

func (e *InvestmentCreationError) Unwrap() error { return e.Cause }
