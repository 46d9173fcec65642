package usecase

import (
	"math"
	"strconv"
	"strings"
)

const defaultCurrency = "USD"

// InvestmentForm is the raw create form: one shape for both asset types,
// numbers still as typed by the user.
type InvestmentForm struct {
	AssetType     string
	Title         string
	Location      string
	Description   string
	Price         string
	Currency      string
	Tenure        string
	LeaseDuration string

	// land, and optionally villa plot size
	LandArea string
	Zoning   string

	// villa
	Bedrooms  string
	Bathrooms string
	BuiltArea string
	Amenities Amenities

	ExpectedYield       string
	LegalChecked        bool
	ManagementAvailable bool
}

type investmentDraft struct {
	asset      Asset
	investment Investment
}

// Validate checks the form without touching any collaborator and returns
// the first offending field as a *ValidationError.
func (f InvestmentForm) Validate() (investmentDraft, error) {
	var d investmentDraft

	t, err := ParseAssetType(strings.TrimSpace(f.AssetType))
	if err != nil {
		return d, &ValidationError{Field: "asset_type", Reason: "must be land or villa"}
	}

	a := Asset{
		Title:       strings.TrimSpace(f.Title),
		Location:    strings.TrimSpace(f.Location),
		Description: strings.TrimSpace(f.Description),
		Currency:    strings.ToUpper(strings.TrimSpace(f.Currency)),
		Tenure:      Tenure(strings.ToLower(strings.TrimSpace(f.Tenure))),
		Images:      []string{},
	}
	if a.Title == "" {
		return d, &ValidationError{Field: "title", Reason: "is required"}
	}
	if a.Location == "" {
		return d, &ValidationError{Field: "location", Reason: "is required"}
	}
	if a.Price, err = positiveFloat(f.Price); err != nil {
		return d, &ValidationError{Field: "price", Reason: "must be a positive number"}
	}
	if a.Currency == "" {
		a.Currency = defaultCurrency
	}
	if a.Tenure == "" {
		a.Tenure = TenureFreehold
	}
	if a.Tenure == TenureLeasehold {
		n, err := strconv.Atoi(strings.TrimSpace(f.LeaseDuration))
		if err != nil || n <= 0 {
			return d, &ValidationError{Field: "lease_duration", Reason: "must be a positive integer for leasehold"}
		}
		a.LeaseDuration = &n
	}
	if err := a.checkTenure(); err != nil {
		return d, err
	}

	switch t {
	case AssetTypeLand:
		area, err := positiveFloat(f.LandArea)
		if err != nil {
			return d, &ValidationError{Field: "land_area", Reason: "must be a positive number"}
		}
		a.Details = LandDetails{LandArea: area, Zoning: strings.TrimSpace(f.Zoning)}
	case AssetTypeVilla:
		v := VillaDetails{Amenities: f.Amenities}
		if v.Bedrooms, err = optionalCount(f.Bedrooms); err != nil {
			return d, &ValidationError{Field: "bedrooms", Reason: "must be a non-negative integer"}
		}
		if v.Bathrooms, err = optionalCount(f.Bathrooms); err != nil {
			return d, &ValidationError{Field: "bathrooms", Reason: "must be a non-negative integer"}
		}
		if v.BuiltArea, err = optionalArea(f.BuiltArea); err != nil {
			return d, &ValidationError{Field: "built_area", Reason: "must be a non-negative number"}
		}
		if v.LandArea, err = optionalArea(f.LandArea); err != nil {
			return d, &ValidationError{Field: "land_area", Reason: "must be a non-negative number"}
		}
		a.Details = v
	}

	inv := Investment{
		AssetType:           t,
		LegalChecked:        f.LegalChecked,
		ManagementAvailable: f.ManagementAvailable,
	}
	if s := strings.TrimSpace(f.ExpectedYield); s != "" {
		y, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return d, &ValidationError{Field: "expected_yield", Reason: "must be a number"}
		}
		inv.ExpectedYield = &y
	}
	if err := checkYield(inv.ExpectedYield); err != nil {
		return d, err
	}

	d.asset, d.investment = a, inv
	return d, nil
}

func positiveFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func optionalCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func optionalArea(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
