package config

// Header constants.
const (
	HEADER_KEY_X_REQUEST_ID = "X-Request-Id"
	HEADER_KEY_X_STAGING_ID = "X-Staging-Id"
)

const (
	ENV_KEY_APP_ENV   = "APP_ENV"
	ENV_KEY_PORT      = "PORT"
	ENV_KEY_LOG_LEVEL = "LOG_LEVEL"

	ENV_KEY_DB_DATABASE             = "DB_DATABASE"
	ENV_KEY_DB_PASSWORD             = "DB_PASSWORD"
	ENV_KEY_DB_USER                 = "DB_USER"
	ENV_KEY_DB_PORT                 = "DB_PORT"
	ENV_KEY_DB_HOST                 = "DB_HOST"
	ENV_KEY_DB_MAX_OPEN_CONNECTIONS = "DB_MAX_OPEN_CONNECTIONS"

	// minio | s3
	ENV_KEY_STORAGE_PROVIDER = "STORAGE_PROVIDER"
	ENV_KEY_MINIO_ENDPOINT   = "MINIO_ENDPOINT"
	ENV_KEY_MINIO_ACCESS_KEY = "MINIO_ACCESS_KEY"
	ENV_KEY_MINIO_SECRET_KEY = "MINIO_SECRET_KEY"
	ENV_KEY_MINIO_USE_SSL    = "MINIO_USE_SSL"
	ENV_KEY_S3_REGION        = "S3_REGION"

	ENV_KEY_REDIS_HOST         = "REDIS_HOST"
	ENV_KEY_REDIS_PORT         = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD     = "REDIS_PASSWORD"
	ENV_KEY_WORKER_CONCURRENCY = "WORKER_CONCURRENCY"

	ENV_KEY_SMTP_HOST     = "SMTP_HOST"
	ENV_KEY_SMTP_USERNAME = "SMTP_USERNAME"
	ENV_KEY_SMTP_PASSWORD = "SMTP_PASSWORD"
	ENV_KEY_SMTP_PORT     = "SMTP_PORT"
	ENV_KEY_MAIL_FROM     = "MAIL_FROM"
	ENV_KEY_ADMIN_EMAIL   = "ADMIN_EMAIL"

	ENV_KEY_OTEL_EXPORTER_OTLP_ENDPOINT = "OTEL_EXPORTER_OTLP_ENDPOINT"
	ENV_KEY_OTEL_SERVICE_NAME           = "OTEL_SERVICE_NAME"
)

// Object store buckets, one per asset type.
const (
	BUCKET_VILLAS = "properties"
	BUCKET_LANDS  = "lands"
)

// Path segments under each bucket.
const (
	PATH_SEGMENT_VILLAS = "villas"
	PATH_SEGMENT_LANDS  = "lands"
)

const (
	// MAX_IMAGE_SIZE bounds a single staged image.
	MAX_IMAGE_SIZE = 10 << 20
	// MAX_STAGED_IMAGES bounds the number of images in one staging session.
	MAX_STAGED_IMAGES = 30
)

// Task types handled by the worker.
const (
	TASK_TYPE_ASSET_COLORS       = "asset:colors"
	TASK_TYPE_ASSET_COLORS_SWEEP = "asset:colors:sweep"
)

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_REQUEST_ID
)
