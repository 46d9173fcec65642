package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"

	"github.com/estatease/estatease/internal/config"
	"github.com/estatease/estatease/internal/database"
	"github.com/estatease/estatease/internal/email"
	"github.com/estatease/estatease/internal/filestorage"
	"github.com/estatease/estatease/internal/queue"
	"github.com/estatease/estatease/internal/usecase"
)

// Service is the usecase surface the HTTP handlers depend on.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	ListAssets(context.Context, usecase.ListAssetsOption) ([]usecase.Asset, int, error)
	GetAssetByID(context.Context, usecase.AssetType, uuid.UUID) (usecase.Asset, error)
	UpdateAsset(context.Context, usecase.Asset) (usecase.Asset, error)
	DeleteAsset(context.Context, usecase.AssetType, uuid.UUID) error
	AssetQRCode(ctx context.Context, t usecase.AssetType, id uuid.UUID, baseURL string, size int) ([]byte, error)

	SubmitInvestment(context.Context, usecase.InvestmentForm, []usecase.StagedFile, usecase.ProgressFunc) (usecase.SubmitResult, error)
	ListInvestments(context.Context, usecase.ListInvestmentsOption) ([]usecase.Investment, int, error)
	GetInvestmentByID(context.Context, uuid.UUID) (usecase.Investment, error)
	CreateInvestment(context.Context, usecase.Investment) (usecase.Investment, error)
	UpdateInvestment(context.Context, usecase.Investment) (usecase.Investment, error)
	DeleteInvestment(context.Context, uuid.UUID) error
}

type Server struct {
	server    Service
	validator *validator.Validate
	staging   *stagingStore
	logger    *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		server:    svc,
		validator: validator.New(),
		staging:   newStagingStore(usecase.DataURLPreview),
		logger:    logger,
	}
}

// App is the API process: the HTTP server plus everything it must close.
type App struct {
	httpServer *http.Server
	srv        *Server
	usecase    usecase.Usecase
	queue      *queue.Client
	mailer     *email.EmailProvider
	logger     *slog.Logger
	stop       chan struct{}
}

// NewApp wires the API from environment variables. Redis and SMTP are
// optional: without them colours are not extracted and orphan notices are
// not mailed.
func NewApp(ctx context.Context, logger *slog.Logger) (*App, error) {
	gormDB, err := database.Open(database.DSNFromEnv(), logger)
	if err != nil {
		return nil, err
	}
	repo, err := database.New(gormDB)
	if err != nil {
		if sqlDB, dberr := gormDB.DB(); dberr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	fsp, err := filestorage.NewFromEnv(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}

	app := &App{logger: logger, stop: make(chan struct{})}

	var qc usecase.QueueClient
	if os.Getenv(config.ENV_KEY_REDIS_HOST) != "" {
		opt := queue.RedisOptFromEnv()
		app.queue = queue.NewClient(opt.Addr, opt.Password, logger)
		qc = app.queue
	} else {
		logger.Warn("REDIS_HOST not set, asset colours will not be extracted")
	}

	var mp usecase.MailProvider
	if os.Getenv(config.ENV_KEY_SMTP_HOST) != "" {
		app.mailer, err = email.NewEmailProvider(
			os.Getenv(config.ENV_KEY_SMTP_HOST),
			os.Getenv(config.ENV_KEY_SMTP_USERNAME),
			os.Getenv(config.ENV_KEY_SMTP_PASSWORD),
			os.Getenv(config.ENV_KEY_SMTP_PORT),
			logger,
		)
		if err != nil {
			repo.Close()
			return nil, err
		}
		mp = app.mailer
	} else {
		logger.Warn("SMTP_HOST not set, orphaned assets will only be logged")
	}

	app.usecase = usecase.New(repo, fsp, qc, mp, logger).
		WithAdminEmail(os.Getenv(config.ENV_KEY_MAIL_FROM), os.Getenv(config.ENV_KEY_ADMIN_EMAIL))
	app.srv = New(app.usecase, logger)

	port, _ := strconv.Atoi(os.Getenv(config.ENV_KEY_PORT))
	if port == 0 {
		port = 8080
	}
	app.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     app.srv.RegisterRoutes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 30 * time.Second,
		// submissions upload every staged image before responding
		WriteTimeout: 5 * time.Minute,
	}

	go app.expireStagingSessions(time.Hour)

	return app, nil
}

func (a *App) Addr() string {
	return a.httpServer.Addr
}

func (a *App) ListenAndServe() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP connections, then flushes queued mail and closes the
// queue client and the database.
func (a *App) Shutdown(ctx context.Context) error {
	close(a.stop)
	err := a.httpServer.Shutdown(ctx)

	if a.mailer != nil {
		a.mailer.Close()
	}
	if a.queue != nil {
		err = errors.Join(err, a.queue.Close())
	}
	return errors.Join(err, a.usecase.Close())
}

func (a *App) expireStagingSessions(ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			if n := a.srv.staging.expire(ttl); n > 0 {
				a.logger.Info("expired staging sessions", slog.Int("count", n))
			}
		}
	}
}
