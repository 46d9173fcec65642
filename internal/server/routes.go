package server

import (
	"context"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/estatease/estatease/internal/config"
)

func (s *Server) RegisterRoutes() http.Handler {
	serviceName := os.Getenv(config.ENV_KEY_OTEL_SERVICE_NAME)
	if serviceName == "" {
		serviceName = "estatease-api"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware(serviceName, otelecho.WithSkipper(skipper)))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		TargetHeader:     config.HEADER_KEY_X_REQUEST_ID,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := context.WithValue(c.Request().Context(), config.CTX_KEY_REQUEST_ID, id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(NewEchoLogger(s.logger))
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", config.HEADER_KEY_X_STAGING_ID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/api/health", s.healthHandler)

	var stagingGroup = e.Group("/api/v1/staging")
	stagingGroup.POST("", s.CreateStagingSession)
	stagingGroup.GET("/:id", s.GetStagingSession)
	stagingGroup.DELETE("/:id", s.DeleteStagingSession)
	stagingGroup.POST("/:id/images", s.AddStagedImages, middleware.BodyLimit("320M"))
	stagingGroup.DELETE("/:id/images/:index", s.RemoveStagedImage)
	stagingGroup.GET("/:id/progress", s.StreamSubmitProgress)

	var investmentGroup = e.Group("/api/v1/investments")
	investmentGroup.GET("", s.ListInvestments)
	investmentGroup.POST("", s.SubmitInvestment)
	investmentGroup.GET("/:id", s.GetInvestmentByID)
	investmentGroup.PUT("/:id", s.UpdateInvestment)
	investmentGroup.DELETE("/:id", s.DeleteInvestment)

	var assetGroup = e.Group("/api/v1/assets")
	assetGroup.GET("", s.ListAssets)
	assetGroup.GET("/:type/:id", s.GetAssetByID)
	assetGroup.PUT("/:type/:id", s.UpdateAsset)
	assetGroup.DELETE("/:type/:id", s.DeleteAsset)
	assetGroup.GET("/:type/:id/qr", s.GetAssetQRCode)
	assetGroup.POST("/:type/:id/investment", s.CreateInvestmentForAsset)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	stats := s.server.Health()
	if stats["status"] != "up" {
		return c.JSON(http.StatusServiceUnavailable, stats)
	}
	return c.JSON(http.StatusOK, stats)
}
