package filestorage

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/estatease/estatease/internal/config"
)

// Provider is the object store used for asset images.
type Provider interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	GetPublicURL(ctx context.Context, bucket, path string) (string, error)
}

// NewFromEnv picks the provider named by STORAGE_PROVIDER, minio by default.
// MinIO buckets are created on startup, S3 buckets are expected to exist.
func NewFromEnv(ctx context.Context) (Provider, error) {
	switch p := os.Getenv(config.ENV_KEY_STORAGE_PROVIDER); p {
	case "s3":
		return NewS3Storage(ctx, os.Getenv(config.ENV_KEY_S3_REGION))
	case "", "minio":
		useSSL, _ := strconv.ParseBool(os.Getenv(config.ENV_KEY_MINIO_USE_SSL))
		m, err := NewMinIOStorage(
			os.Getenv(config.ENV_KEY_MINIO_ENDPOINT),
			os.Getenv(config.ENV_KEY_MINIO_ACCESS_KEY),
			os.Getenv(config.ENV_KEY_MINIO_SECRET_KEY),
			useSSL,
		)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBuckets(ctx, config.BUCKET_VILLAS, config.BUCKET_LANDS); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", p)
	}
}
