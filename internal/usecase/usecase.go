package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

func New(
	repo Repository,
	fsp FileStorageProvider,
	qc QueueClient,
	mp MailProvider,
	logger *slog.Logger,
) Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	return Usecase{
		repo:                repo,
		fileStorageProvider: fsp,
		queueClient:         qc,
		mailProvider:        mp,
		logger:              logger,
		now:                 time.Now,
	}
}

type Repository interface {
	Health() map[string]string
	Close() error

	ListAssets(context.Context, ListAssetsOption) ([]Asset, int, error)
	GetAssetByID(context.Context, AssetType, uuid.UUID) (Asset, error)
	CreateAsset(context.Context, Asset) (Asset, error)
	UpdateAsset(context.Context, Asset) (Asset, error)
	UpdateAssetImages(context.Context, AssetType, uuid.UUID, []string) error
	UpdateAssetColors(context.Context, AssetType, uuid.UUID, []byte) error
	DeleteAsset(context.Context, AssetType, uuid.UUID) error

	ListInvestments(context.Context, ListInvestmentsOption) ([]Investment, int, error)
	GetInvestmentByID(context.Context, uuid.UUID) (Investment, error)
	CreateInvestment(context.Context, Investment) (Investment, error)
	UpdateInvestment(context.Context, Investment) (Investment, error)
	DeleteInvestment(context.Context, uuid.UUID) error
}

// FileStorageProvider is the object store. Upload overwrites an existing
// object at the same path.
type FileStorageProvider interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	GetPublicURL(ctx context.Context, bucket, path string) (string, error)
}

type QueueClient interface {
	EnqueueAssetColors(ctx context.Context, t AssetType, id uuid.UUID) error
}

type MailProvider interface {
	SendEmail(context.Context, Email) error
}

type Usecase struct {
	repo                Repository
	fileStorageProvider FileStorageProvider
	queueClient         QueueClient
	mailProvider        MailProvider
	logger              *slog.Logger
	now                 func() time.Time

	adminEmail string
	mailFrom   string
}

// WithAdminEmail sets the recipient of orphaned asset notices.
func (u Usecase) WithAdminEmail(from, to string) Usecase {
	u.mailFrom = from
	u.adminEmail = to
	return u
}

func (u Usecase) Health() map[string]string {
	return u.repo.Health()
}

func (u Usecase) Close() error {
	return u.repo.Close()
}
