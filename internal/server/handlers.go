package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/estatease/estatease/internal/usecase"
)

const (
	codeAssetCreationFailed      = "asset_creation_failed"
	codeInvestmentCreationFailed = "investment_creation_failed"
)

// errorJSON maps usecase errors onto status codes. Workflow errors with a
// partial result are rendered by SubmitInvestment itself.
func errorJSON(ctx echo.Context, err error) error {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
			"field": verr.Field,
		})
	case errors.Is(err, usecase.ErrNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
