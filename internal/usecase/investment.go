package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Investment wraps an asset with yield, legal and management metadata. The
// asset reference is (AssetType, AssetID); the store does not enforce it.
type Investment struct {
	ID                  uuid.UUID
	AssetType           AssetType
	AssetID             uuid.UUID
	ExpectedYield       *float64
	LegalChecked        bool
	ManagementAvailable bool
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Asset *Asset
}

type ListInvestmentsOption struct {
	AssetType    AssetType
	Skip         int
	Limit        int
	IncludeAsset bool
}

func (u Usecase) ListInvestments(ctx context.Context, opt ListInvestmentsOption) ([]Investment, int, error) {
	list, total, err := u.repo.ListInvestments(ctx, opt)
	if err != nil {
		return nil, 0, err
	}
	if !opt.IncludeAsset {
		return list, total, nil
	}

	for i, inv := range list {
		a, err := u.repo.GetAssetByID(ctx, inv.AssetType, inv.AssetID)
		if err != nil {
			u.logger.WarnContext(ctx, "investment asset lookup failed",
				"investment_id", inv.ID, "asset_id", inv.AssetID, "err", err)
			continue
		}
		list[i].Asset = &a
	}
	return list, total, nil
}

func (u Usecase) GetInvestmentByID(ctx context.Context, id uuid.UUID) (Investment, error) {
	inv, err := u.repo.GetInvestmentByID(ctx, id)
	if err != nil {
		return Investment{}, err
	}
	a, err := u.repo.GetAssetByID(ctx, inv.AssetType, inv.AssetID)
	if err != nil {
		u.logger.WarnContext(ctx, "investment asset lookup failed",
			"investment_id", inv.ID, "asset_id", inv.AssetID, "err", err)
		return inv, nil
	}
	inv.Asset = &a
	return inv, nil
}

// CreateInvestment writes an investment for an asset that already exists.
// It is the retry path for a submission that failed on its last step.
func (u Usecase) CreateInvestment(ctx context.Context, inv Investment) (Investment, error) {
	if err := checkYield(inv.ExpectedYield); err != nil {
		return Investment{}, err
	}
	a, err := u.repo.GetAssetByID(ctx, inv.AssetType, inv.AssetID)
	if err != nil {
		return Investment{}, fmt.Errorf("%s %s: %w", inv.AssetType, inv.AssetID, err)
	}

	created, err := u.repo.CreateInvestment(ctx, inv)
	if err != nil {
		return Investment{}, err
	}
	created.Asset = &a
	return created, nil
}

func (u Usecase) UpdateInvestment(ctx context.Context, inv Investment) (Investment, error) {
	if err := checkYield(inv.ExpectedYield); err != nil {
		return Investment{}, err
	}
	return u.repo.UpdateInvestment(ctx, inv)
}

func (u Usecase) DeleteInvestment(ctx context.Context, id uuid.UUID) error {
	return u.repo.DeleteInvestment(ctx, id)
}

func checkYield(y *float64) error {
	if y != nil && (math.IsNaN(*y) || *y < 0 || *y > 100) {
		return &ValidationError{Field: "expected_yield", Reason: "must be a percentage between 0 and 100"}
	}
	return nil
}
