package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/estatease/estatease/internal/usecase"
)

type Asset struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	Title         string           `json:"title"`
	Location      string           `json:"location"`
	Description   string           `json:"description,omitempty"`
	Price         float64          `json:"price"`
	Currency      string           `json:"currency"`
	Tenure        string           `json:"tenure"`
	LeaseDuration *int             `json:"lease_duration,omitempty"`
	Images        []string         `json:"images"`
	PrimaryImage  string           `json:"primary_image,omitempty"`
	Colors        map[int][4]uint8 `json:"colors,omitempty"`
	Land          *LandDetails     `json:"land,omitempty"`
	Villa         *VillaDetails    `json:"villa,omitempty"`
	CreatedAt     string           `json:"created_at,omitzero"`
	UpdatedAt     string           `json:"updated_at,omitzero"`
}

type LandDetails struct {
	LandArea float64 `json:"land_area" validate:"gt=0"`
	Zoning   string  `json:"zoning,omitempty"`
}

type VillaDetails struct {
	Bedrooms  int       `json:"bedrooms" validate:"gte=0"`
	Bathrooms int       `json:"bathrooms" validate:"gte=0"`
	BuiltArea float64   `json:"built_area" validate:"gte=0"`
	LandArea  float64   `json:"land_area" validate:"gte=0"`
	Amenities Amenities `json:"amenities"`
}

type Amenities struct {
	Pool           bool `json:"pool" form:"pool"`
	Garden         bool `json:"garden" form:"garden"`
	Furnished      bool `json:"furnished" form:"furnished"`
	AirConditioned bool `json:"air_conditioned" form:"air_conditioned"`
	Wifi           bool `json:"wifi" form:"wifi"`
	Parking        bool `json:"parking" form:"parking"`
}

func ConvertAssetFrom(a usecase.Asset) Asset {
	asset := Asset{
		ID:            a.ID.String(),
		Type:          string(a.Type()),
		Title:         a.Title,
		Location:      a.Location,
		Description:   a.Description,
		Price:         a.Price,
		Currency:      a.Currency,
		Tenure:        string(a.Tenure),
		LeaseDuration: a.LeaseDuration,
		Images:        a.Images,
		PrimaryImage:  a.PrimaryImage(),
	}
	if asset.Images == nil {
		asset.Images = []string{}
	}
	if !a.CreatedAt.IsZero() {
		asset.CreatedAt = a.CreatedAt.Format(time.RFC3339)
		asset.UpdatedAt = a.UpdatedAt.Format(time.RFC3339)
	}
	if len(a.Colors) > 0 {
		// colours are best effort, a malformed column is left out
		_ = json.Unmarshal(a.Colors, &asset.Colors)
	}

	switch d := a.Details.(type) {
	case usecase.LandDetails:
		asset.Land = &LandDetails{LandArea: d.LandArea, Zoning: d.Zoning}
	case usecase.VillaDetails:
		asset.Villa = &VillaDetails{
			Bedrooms:  d.Bedrooms,
			Bathrooms: d.Bathrooms,
			BuiltArea: d.BuiltArea,
			LandArea:  d.LandArea,
			Amenities: Amenities(d.Amenities),
		}
	}
	return asset
}

type ListAssetsRequest struct {
	Type  string `query:"type" validate:"omitempty,oneof=land villa"`
	Skip  int    `query:"skip" validate:"gte=0"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (s *Server) ListAssets(ctx echo.Context) error {
	var req ListAssetsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	assets, total, err := s.server.ListAssets(ctx.Request().Context(), usecase.ListAssetsOption{
		Type:  usecase.AssetType(req.Type),
		Skip:  req.Skip,
		Limit: req.Limit,
	})
	if err != nil {
		return errorJSON(ctx, err)
	}

	list := make([]Asset, 0, len(assets))
	for _, a := range assets {
		list = append(list, ConvertAssetFrom(a))
	}

	return ctx.JSON(200, Res{
		Data: list,
		Meta: &Meta{
			Total: total,
			Skip:  req.Skip,
			Limit: req.Limit,
		},
	})
}

type AssetRefRequest struct {
	Type string `param:"type" validate:"required,oneof=land villa"`
	ID   string `param:"id" validate:"required,uuid"`
}

// bindAssetRef binds and validates the :type/:id path of asset routes.
// On failure the error response has already been written.
func (s *Server) bindAssetRef(ctx echo.Context) (usecase.AssetType, uuid.UUID, bool, error) {
	var req AssetRefRequest
	if err := (&echo.DefaultBinder{}).BindPathParams(ctx, &req); err != nil {
		return "", uuid.Nil, false, ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return "", uuid.Nil, false, ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	id, _ := uuid.Parse(req.ID)
	return usecase.AssetType(req.Type), id, true, nil
}

func (s *Server) GetAssetByID(ctx echo.Context) error {
	t, id, ok, err := s.bindAssetRef(ctx)
	if !ok {
		return err
	}

	a, err := s.server.GetAssetByID(ctx.Request().Context(), t, id)
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(200, Res{Data: ConvertAssetFrom(a)})
}

type UpdateAssetRequest struct {
	Title         string        `json:"title" validate:"required"`
	Location      string        `json:"location" validate:"required"`
	Description   string        `json:"description"`
	Price         float64       `json:"price" validate:"gt=0"`
	Currency      string        `json:"currency" validate:"omitempty,len=3"`
	Tenure        string        `json:"tenure" validate:"required,oneof=freehold leasehold"`
	LeaseDuration *int          `json:"lease_duration"`
	Land          *LandDetails  `json:"land" validate:"omitempty"`
	Villa         *VillaDetails `json:"villa" validate:"omitempty"`
}

func (s *Server) UpdateAsset(ctx echo.Context) error {
	t, id, ok, err := s.bindAssetRef(ctx)
	if !ok {
		return err
	}

	var req UpdateAssetRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	a := usecase.Asset{
		ID:            id,
		Title:         req.Title,
		Location:      req.Location,
		Description:   req.Description,
		Price:         req.Price,
		Currency:      req.Currency,
		Tenure:        usecase.Tenure(req.Tenure),
		LeaseDuration: req.LeaseDuration,
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}

	switch t {
	case usecase.AssetTypeLand:
		if req.Land == nil {
			return ctx.JSON(422, map[string]string{"error": "land details are required", "field": "land"})
		}
		a.Details = usecase.LandDetails{LandArea: req.Land.LandArea, Zoning: req.Land.Zoning}
	case usecase.AssetTypeVilla:
		if req.Villa == nil {
			return ctx.JSON(422, map[string]string{"error": "villa details are required", "field": "villa"})
		}
		a.Details = usecase.VillaDetails{
			Bedrooms:  req.Villa.Bedrooms,
			Bathrooms: req.Villa.Bathrooms,
			BuiltArea: req.Villa.BuiltArea,
			LandArea:  req.Villa.LandArea,
			Amenities: usecase.Amenities(req.Villa.Amenities),
		}
	}

	updated, err := s.server.UpdateAsset(ctx.Request().Context(), a)
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(200, Res{Data: ConvertAssetFrom(updated)})
}

func (s *Server) DeleteAsset(ctx echo.Context) error {
	t, id, ok, err := s.bindAssetRef(ctx)
	if !ok {
		return err
	}

	if err := s.server.DeleteAsset(ctx.Request().Context(), t, id); err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.NoContent(204)
}

type GetAssetQRCodeRequest struct {
	Size int `query:"size" validate:"omitempty,gte=64,lte=1024"`
}

// GetAssetQRCode renders a PNG QR code linking to the public listing page.
func (s *Server) GetAssetQRCode(ctx echo.Context) error {
	t, id, ok, err := s.bindAssetRef(ctx)
	if !ok {
		return err
	}

	var req GetAssetQRCodeRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	baseURL := ctx.Scheme() + "://" + ctx.Request().Host
	png, err := s.server.AssetQRCode(ctx.Request().Context(), t, id, baseURL, req.Size)
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}
