package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type AssetType string

const (
	AssetTypeLand  AssetType = "land"
	AssetTypeVilla AssetType = "villa"
)

func ParseAssetType(s string) (AssetType, error) {
	switch t := AssetType(s); t {
	case AssetTypeLand, AssetTypeVilla:
		return t, nil
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

type Tenure string

const (
	TenureFreehold  Tenure = "freehold"
	TenureLeasehold Tenure = "leasehold"
)

// Asset is a land plot or a villa. Variant specific fields live in Details
// and are only reachable through a type switch on it.
type Asset struct {
	ID          uuid.UUID
	Title       string
	Location    string
	Description string
	Price       float64
	Currency    string
	Tenure      Tenure
	// LeaseDuration is in years and only meaningful for leasehold tenure.
	LeaseDuration *int
	Images        []string
	Colors        []byte
	Details       AssetDetails
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AssetDetails is implemented by LandDetails and VillaDetails only.
type AssetDetails interface {
	assetType() AssetType
}

type LandDetails struct {
	// LandArea in are.
	LandArea float64
	Zoning   string
}

func (LandDetails) assetType() AssetType { return AssetTypeLand }

type VillaDetails struct {
	Bedrooms  int
	Bathrooms int
	// BuiltArea and LandArea in square metres.
	BuiltArea float64
	LandArea  float64
	Amenities Amenities
}

func (VillaDetails) assetType() AssetType { return AssetTypeVilla }

type Amenities struct {
	Pool           bool
	Garden         bool
	Furnished      bool
	AirConditioned bool
	Wifi           bool
	Parking        bool
}

func (a Asset) Type() AssetType {
	if a.Details == nil {
		return ""
	}
	return a.Details.assetType()
}

// PrimaryImage is the first image in the list, the default thumbnail.
func (a Asset) PrimaryImage() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0]
}

// checkTenure enforces that a lease duration is set and positive iff the
// tenure is leasehold. Freehold assets have it cleared.
func (a *Asset) checkTenure() error {
	switch a.Tenure {
	case TenureFreehold:
		a.LeaseDuration = nil
	case TenureLeasehold:
		if a.LeaseDuration == nil || *a.LeaseDuration <= 0 {
			return &ValidationError{Field: "lease_duration", Reason: "must be a positive integer for leasehold"}
		}
	default:
		return &ValidationError{Field: "tenure", Reason: "must be freehold or leasehold"}
	}
	return nil
}

type ListAssetsOption struct {
	Type  AssetType
	Skip  int
	Limit int
}

func (u Usecase) ListAssets(ctx context.Context, opt ListAssetsOption) ([]Asset, int, error) {
	return u.repo.ListAssets(ctx, opt)
}

func (u Usecase) GetAssetByID(ctx context.Context, t AssetType, id uuid.UUID) (Asset, error) {
	return u.repo.GetAssetByID(ctx, t, id)
}

// UpdateAsset replaces the editable fields of an existing asset. The image
// list is left untouched when asset.Images is nil.
func (u Usecase) UpdateAsset(ctx context.Context, asset Asset) (Asset, error) {
	if asset.Details == nil {
		return Asset{}, &ValidationError{Field: "type", Reason: "is required"}
	}
	if err := asset.checkTenure(); err != nil {
		return Asset{}, err
	}
	if asset.Price <= 0 {
		return Asset{}, &ValidationError{Field: "price", Reason: "must be a positive number"}
	}
	if d, ok := asset.Details.(LandDetails); ok && d.LandArea <= 0 {
		return Asset{}, &ValidationError{Field: "land_area", Reason: "must be a positive number"}
	}
	if _, err := u.repo.GetAssetByID(ctx, asset.Type(), asset.ID); err != nil {
		return Asset{}, err
	}
	return u.repo.UpdateAsset(ctx, asset)
}

func (u Usecase) DeleteAsset(ctx context.Context, t AssetType, id uuid.UUID) error {
	return u.repo.DeleteAsset(ctx, t, id)
}
