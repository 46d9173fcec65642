package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memRepo is an in-memory Repository with per-method failure injection.
type memRepo struct {
	mu          sync.Mutex
	assets      map[uuid.UUID]Asset
	investments map[uuid.UUID]Investment
	calls       []string

	createAssetErr      error
	updateImagesErr     error
	createInvestmentErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		assets:      make(map[uuid.UUID]Asset),
		investments: make(map[uuid.UUID]Investment),
	}
}

func (r *memRepo) record(name string) {
	r.calls = append(r.calls, name)
}

func (r *memRepo) called(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (r *memRepo) Health() map[string]string { return map[string]string{"status": "up"} }
func (r *memRepo) Close() error              { return nil }

func (r *memRepo) ListAssets(_ context.Context, opt ListAssetsOption) ([]Asset, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ListAssets")

	var list []Asset
	for _, a := range r.assets {
		if opt.Type == "" || a.Type() == opt.Type {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, len(list), nil
}

func (r *memRepo) GetAssetByID(_ context.Context, t AssetType, id uuid.UUID) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetAssetByID")

	a, ok := r.assets[id]
	if !ok || a.Type() != t {
		return Asset{}, ErrNotFound
	}
	a.Images = slices.Clone(a.Images)
	return a, nil
}

func (r *memRepo) CreateAsset(_ context.Context, a Asset) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("CreateAsset")

	if r.createAssetErr != nil {
		return Asset{}, r.createAssetErr
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.assets[a.ID] = a
	return a, nil
}

func (r *memRepo) UpdateAsset(_ context.Context, a Asset) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("UpdateAsset")

	old, ok := r.assets[a.ID]
	if !ok {
		return Asset{}, ErrNotFound
	}
	if a.Images == nil {
		a.Images = old.Images
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = time.Now()
	r.assets[a.ID] = a
	return a, nil
}

func (r *memRepo) UpdateAssetImages(_ context.Context, t AssetType, id uuid.UUID, urls []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("UpdateAssetImages")

	if r.updateImagesErr != nil {
		return r.updateImagesErr
	}
	a, ok := r.assets[id]
	if !ok || a.Type() != t {
		return ErrNotFound
	}
	a.Images = slices.Clone(urls)
	r.assets[id] = a
	return nil
}

func (r *memRepo) UpdateAssetColors(_ context.Context, t AssetType, id uuid.UUID, colors []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("UpdateAssetColors")

	a, ok := r.assets[id]
	if !ok || a.Type() != t {
		return ErrNotFound
	}
	a.Colors = colors
	r.assets[id] = a
	return nil
}

func (r *memRepo) DeleteAsset(_ context.Context, t AssetType, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("DeleteAsset")

	a, ok := r.assets[id]
	if !ok || a.Type() != t {
		return ErrNotFound
	}
	delete(r.assets, id)
	return nil
}

func (r *memRepo) ListInvestments(_ context.Context, opt ListInvestmentsOption) ([]Investment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ListInvestments")

	var list []Investment
	for _, inv := range r.investments {
		if opt.AssetType == "" || inv.AssetType == opt.AssetType {
			list = append(list, inv)
		}
	}
	return list, len(list), nil
}

func (r *memRepo) GetInvestmentByID(_ context.Context, id uuid.UUID) (Investment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetInvestmentByID")

	inv, ok := r.investments[id]
	if !ok {
		return Investment{}, ErrNotFound
	}
	return inv, nil
}

func (r *memRepo) CreateInvestment(_ context.Context, inv Investment) (Investment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("CreateInvestment")

	if r.createInvestmentErr != nil {
		return Investment{}, r.createInvestmentErr
	}
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	r.investments[inv.ID] = inv
	return inv, nil
}

func (r *memRepo) UpdateInvestment(_ context.Context, inv Investment) (Investment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("UpdateInvestment")

	old, ok := r.investments[inv.ID]
	if !ok {
		return Investment{}, ErrNotFound
	}
	old.ExpectedYield = inv.ExpectedYield
	old.LegalChecked = inv.LegalChecked
	old.ManagementAvailable = inv.ManagementAvailable
	old.UpdatedAt = time.Now()
	r.investments[inv.ID] = old
	return old, nil
}

func (r *memRepo) DeleteInvestment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("DeleteInvestment")

	if _, ok := r.investments[id]; !ok {
		return ErrNotFound
	}
	delete(r.investments, id)
	return nil
}

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	args := m.Called(ctx, bucket, path, data, contentType)
	return args.Error(0)
}

func (m *MockFileStorage) GetPublicURL(_ context.Context, bucket, path string) (string, error) {
	return "https://cdn.test/" + bucket + "/" + path, nil
}

type MockQueueClient struct {
	mock.Mock
}

func (m *MockQueueClient) EnqueueAssetColors(ctx context.Context, t AssetType, id uuid.UUID) error {
	args := m.Called(ctx, t, id)
	return args.Error(0)
}

type MockMailProvider struct {
	mock.Mock
}

func (m *MockMailProvider) SendEmail(ctx context.Context, e Email) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestUsecase(repo Repository, fsp FileStorageProvider) Usecase {
	u := New(repo, fsp, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	u.now = func() time.Time { return testNow }
	return u
}

var errBoom = errors.New("boom")

func villaForm() InvestmentForm {
	return InvestmentForm{
		AssetType:     "villa",
		Title:         "Villa Sunset",
		Location:      "Canggu, Bali",
		Price:         "350000",
		Tenure:        "leasehold",
		LeaseDuration: "25",
		Bedrooms:      "3",
		Bathrooms:     "2",
		BuiltArea:     "180",
		Amenities:     Amenities{Pool: true, Wifi: true},
		ExpectedYield: "8.5",
		LegalChecked:  true,
	}
}

func landForm() InvestmentForm {
	return InvestmentForm{
		AssetType: "land",
		Title:     "Rice field plot",
		Location:  "Tabanan, Bali",
		Price:     "120000",
		Tenure:    "freehold",
		LandArea:  "12.5",
		Zoning:    "green",
	}
}

func jpeg(name string) StagedFile {
	return StagedFile{Name: name, ContentType: "image/jpeg", Data: []byte("jpeg-bytes-" + name)}
}
