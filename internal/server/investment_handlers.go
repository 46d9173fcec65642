package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/estatease/estatease/internal/config"
	"github.com/estatease/estatease/internal/usecase"
)

type Investment struct {
	ID                  string   `json:"id"`
	AssetType           string   `json:"asset_type"`
	AssetID             string   `json:"asset_id"`
	ExpectedYield       *float64 `json:"expected_yield,omitempty"`
	LegalChecked        bool     `json:"legal_checked"`
	ManagementAvailable bool     `json:"management_available"`
	CreatedAt           string   `json:"created_at,omitzero"`
	UpdatedAt           string   `json:"updated_at,omitzero"`
	Asset               *Asset   `json:"asset,omitempty"`
}

func ConvertInvestmentFrom(inv usecase.Investment) Investment {
	i := Investment{
		ID:                  inv.ID.String(),
		AssetType:           string(inv.AssetType),
		AssetID:             inv.AssetID.String(),
		ExpectedYield:       inv.ExpectedYield,
		LegalChecked:        inv.LegalChecked,
		ManagementAvailable: inv.ManagementAvailable,
	}
	if !inv.CreatedAt.IsZero() {
		i.CreatedAt = inv.CreatedAt.Format(time.RFC3339)
		i.UpdatedAt = inv.UpdatedAt.Format(time.RFC3339)
	}
	if inv.Asset != nil {
		a := ConvertAssetFrom(*inv.Asset)
		i.Asset = &a
	}
	return i
}

// SubmitInvestmentRequest mirrors the listing form. Numbers arrive as the
// strings the user typed and are parsed by the usecase.
type SubmitInvestmentRequest struct {
	StagingID string `json:"staging_id" form:"staging_id" validate:"omitempty,uuid"`

	AssetType     string `json:"asset_type" form:"asset_type"`
	Title         string `json:"title" form:"title"`
	Location      string `json:"location" form:"location"`
	Description   string `json:"description" form:"description"`
	Price         string `json:"price" form:"price"`
	Currency      string `json:"currency" form:"currency"`
	Tenure        string `json:"tenure" form:"tenure"`
	LeaseDuration string `json:"lease_duration" form:"lease_duration"`

	LandArea  string    `json:"land_area" form:"land_area"`
	Zoning    string    `json:"zoning" form:"zoning"`
	Bedrooms  string    `json:"bedrooms" form:"bedrooms"`
	Bathrooms string    `json:"bathrooms" form:"bathrooms"`
	BuiltArea string    `json:"built_area" form:"built_area"`
	Amenities Amenities `json:"amenities"`

	ExpectedYield       string `json:"expected_yield" form:"expected_yield"`
	LegalChecked        bool   `json:"legal_checked" form:"legal_checked"`
	ManagementAvailable bool   `json:"management_available" form:"management_available"`
}

func (r SubmitInvestmentRequest) form() usecase.InvestmentForm {
	return usecase.InvestmentForm{
		AssetType:           r.AssetType,
		Title:               r.Title,
		Location:            r.Location,
		Description:         r.Description,
		Price:               r.Price,
		Currency:            r.Currency,
		Tenure:              r.Tenure,
		LeaseDuration:       r.LeaseDuration,
		LandArea:            r.LandArea,
		Zoning:              r.Zoning,
		Bedrooms:            r.Bedrooms,
		Bathrooms:           r.Bathrooms,
		BuiltArea:           r.BuiltArea,
		Amenities:           usecase.Amenities(r.Amenities),
		ExpectedYield:       r.ExpectedYield,
		LegalChecked:        r.LegalChecked,
		ManagementAvailable: r.ManagementAvailable,
	}
}

type SubmitWarning struct {
	Step    string `json:"step"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

type SubmitInvestmentResponse struct {
	Step       string          `json:"step"`
	Asset      *Asset          `json:"asset,omitempty"`
	Investment *Investment     `json:"investment,omitempty"`
	Warnings   []SubmitWarning `json:"warnings,omitempty"`
}

func convertSubmitResult(res usecase.SubmitResult) SubmitInvestmentResponse {
	out := SubmitInvestmentResponse{Step: res.Step.String()}
	if res.Step >= usecase.StepCreateAsset {
		a := ConvertAssetFrom(res.Asset)
		out.Asset = &a
	}
	if res.Step == usecase.StepDone {
		inv := ConvertInvestmentFrom(res.Investment)
		out.Investment = &inv
	}
	for _, e := range res.UploadErrors {
		out.Warnings = append(out.Warnings, SubmitWarning{
			Step:    usecase.StepUploadImages.String(),
			File:    e.File,
			Message: e.Error(),
		})
	}
	if res.AttachError != nil {
		out.Warnings = append(out.Warnings, SubmitWarning{
			Step:    usecase.StepAttachImages.String(),
			Message: res.AttachError.Error(),
		})
	}
	return out
}

// SubmitInvestment runs the whole listing workflow with the images staged
// under staging_id, taken from the body or the X-Staging-Id header.
// Progress is published to the session's websocket.
func (s *Server) SubmitInvestment(ctx echo.Context) error {
	var req SubmitInvestmentRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if req.StagingID == "" {
		req.StagingID = ctx.Request().Header.Get(config.HEADER_KEY_X_STAGING_ID)
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	var (
		files    []usecase.StagedFile
		progress usecase.ProgressFunc
		session  *stagingSession
	)
	if req.StagingID != "" {
		id, _ := uuid.Parse(req.StagingID)
		ss, ok := s.staging.get(id)
		if !ok {
			return ctx.JSON(404, map[string]string{"error": "staging session not found"})
		}
		if !ss.begin() {
			return ctx.JSON(http.StatusConflict, map[string]string{
				"error": "a submission is already running for this staging session",
			})
		}
		defer ss.finish()

		session = ss
		files = session.buf.Files()
		progress = session.publish
	}

	// a client that disconnects mid-upload must not abandon the asset
	// between steps
	res, err := s.server.SubmitInvestment(context.WithoutCancel(ctx.Request().Context()), req.form(), files, progress)

	var (
		aerr *usecase.AssetCreationError
		ierr *usecase.InvestmentCreationError
	)
	switch {
	case err == nil:
	case errors.As(err, &aerr):
		return ctx.JSON(http.StatusInternalServerError, Res{
			Error:   codeAssetCreationFailed,
			Message: err.Error(),
		})
	case errors.As(err, &ierr):
		return ctx.JSON(http.StatusInternalServerError, Res{
			Data:    convertSubmitResult(res),
			Error:   codeInvestmentCreationFailed,
			Message: err.Error(),
		})
	default:
		return errorJSON(ctx, err)
	}

	if session != nil {
		session.buf.Clear()
	}

	msg := "investment created"
	if res.HasWarnings() {
		msg = "investment created with warnings"
	}
	return ctx.JSON(http.StatusCreated, Res{
		Data:    convertSubmitResult(res),
		Message: msg,
	})
}

type ListInvestmentsRequest struct {
	AssetType    string `query:"asset_type" validate:"omitempty,oneof=land villa"`
	Skip         int    `query:"skip" validate:"gte=0"`
	Limit        int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	IncludeAsset bool   `query:"include_asset"`
}

func (s *Server) ListInvestments(ctx echo.Context) error {
	var req ListInvestmentsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	investments, total, err := s.server.ListInvestments(ctx.Request().Context(), usecase.ListInvestmentsOption{
		AssetType:    usecase.AssetType(req.AssetType),
		Skip:         req.Skip,
		Limit:        req.Limit,
		IncludeAsset: req.IncludeAsset,
	})
	if err != nil {
		return errorJSON(ctx, err)
	}

	list := make([]Investment, 0, len(investments))
	for _, inv := range investments {
		list = append(list, ConvertInvestmentFrom(inv))
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

type GetInvestmentByIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (s *Server) GetInvestmentByID(ctx echo.Context) error {
	var req GetInvestmentByIDRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	id, _ := uuid.Parse(req.ID)

	inv, err := s.server.GetInvestmentByID(ctx.Request().Context(), id)
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(200, Res{Data: ConvertInvestmentFrom(inv)})
}

type UpdateInvestmentRequest struct {
	ID                  string   `param:"id" validate:"required,uuid"`
	ExpectedYield       *float64 `json:"expected_yield" validate:"omitempty,gte=0,lte=100"`
	LegalChecked        bool     `json:"legal_checked"`
	ManagementAvailable bool     `json:"management_available"`
}

func (s *Server) UpdateInvestment(ctx echo.Context) error {
	var req UpdateInvestmentRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	id, _ := uuid.Parse(req.ID)

	inv, err := s.server.UpdateInvestment(ctx.Request().Context(), usecase.Investment{
		ID:                  id,
		ExpectedYield:       req.ExpectedYield,
		LegalChecked:        req.LegalChecked,
		ManagementAvailable: req.ManagementAvailable,
	})
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(200, Res{Data: ConvertInvestmentFrom(inv)})
}

func (s *Server) DeleteInvestment(ctx echo.Context) error {
	var req GetInvestmentByIDRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	id, _ := uuid.Parse(req.ID)

	if err := s.server.DeleteInvestment(ctx.Request().Context(), id); err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.NoContent(204)
}

type CreateInvestmentForAssetRequest struct {
	ExpectedYield       *float64 `json:"expected_yield" validate:"omitempty,gte=0,lte=100"`
	LegalChecked        bool     `json:"legal_checked"`
	ManagementAvailable bool     `json:"management_available"`
}

// CreateInvestmentForAsset writes the investment of an existing asset. It
// is how a submission that failed on its last step is completed.
func (s *Server) CreateInvestmentForAsset(ctx echo.Context) error {
	t, id, ok, err := s.bindAssetRef(ctx)
	if !ok {
		return err
	}

	var req CreateInvestmentForAssetRequest
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	inv, err := s.server.CreateInvestment(ctx.Request().Context(), usecase.Investment{
		AssetType:           t,
		AssetID:             id,
		ExpectedYield:       req.ExpectedYield,
		LegalChecked:        req.LegalChecked,
		ManagementAvailable: req.ManagementAvailable,
	})
	if err != nil {
		return errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: ConvertInvestmentFrom(inv)})
}
