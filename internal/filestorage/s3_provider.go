package filestorage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Storage struct {
	client *s3.Client
	region string
}

// NewS3Storage loads credentials from the default AWS chain.
func NewS3Storage(ctx context.Context, region string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &S3Storage{
		client: s3.NewFromConfig(cfg),
		region: region,
	}, nil
}

func (f *S3Storage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	_, err := f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &path,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", path, bucket, err)
	}
	return nil
}

func (f *S3Storage) GetPublicURL(_ context.Context, bucket, path string) (string, error) {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, f.region, path), nil
}
