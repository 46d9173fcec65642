package filestorage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinIOStorage connects to a MinIO (or any S3 compatible) endpoint.
// Endpoint is host[:port] without a scheme.
func NewMinIOStorage(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*MinIOStorage, error) {
	m, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
		// skips the bucket location lookup before each request
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}
	return &MinIOStorage{client: m}, nil
}

type MinIOStorage struct {
	client *minio.Client
}

// EnsureBuckets creates any of the given buckets that do not exist yet.
func (f *MinIOStorage) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, b := range buckets {
		exists, err := f.client.BucketExists(ctx, b)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", b, err)
		}
		if exists {
			continue
		}
		if err := f.client.MakeBucket(ctx, b, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to make bucket %s: %w", b, err)
		}
	}
	return nil
}

func (f *MinIOStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	_, err := f.client.PutObject(ctx, bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", path, bucket, err)
	}
	return nil
}

func (f *MinIOStorage) GetPublicURL(_ context.Context, bucket, path string) (string, error) {
	return fmt.Sprintf("%s/%s/%s", f.client.EndpointURL(), bucket, path), nil
}
