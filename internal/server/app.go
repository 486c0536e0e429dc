// Package server wires the authkeeper components together and runs the HTTP
// server until the process is asked to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *services.UserService
	closeRepo   func() error
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if c.SecretKey == "" {
		logger.Warn(context.Background(), "secret key is not configured, login and session checks will fail")
	}

	us, closeRepo, err := NewUserService(context.Background(), c, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, userService: us, closeRepo: closeRepo}, nil
}

// NewUserService builds the credential service for cfg, including its
// storage backend. The returned func releases the storage.
func NewUserService(ctx context.Context, cfg *config.Config, logger logging.Logger) (*services.UserService, func() error, error) {
	repo, closeRepo, err := OpenRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	codec, err := auth.NewTokenCodec(cfg)
	if err != nil {
		_ = closeRepo()
		return nil, nil, err
	}

	hasher := auth.NewPasswordHasher(auth.DefaultArgon2idParams())

	return services.NewUserService(repo, hasher, codec, logger), closeRepo, nil
}

// OpenRepository opens the user store selected by cfg.StorageBackend.
// PostgreSQL schemas are migrated before use.
func OpenRepository(ctx context.Context, cfg *config.Config, logger logging.Logger) (users.Repository, func() error, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		repo, err := users.NewFileRepository(cfg.DataFile)
		if err != nil {
			return nil, nil, fmt.Errorf("file storage init error: %w", err)
		}
		logger.Info(ctx, "using file storage", "path", cfg.DataFile)
		return repo, func() error { return nil }, nil

	case config.StoragePostgres:
		db, err := users.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		if err := users.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db migration error: %w", err)
		}
		logger.Info(ctx, "using postgres storage")
		return users.NewPostgresRepository(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM/SIGQUIT arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	defer func() {
		if err := app.closeRepo(); err != nil {
			app.logger.Error(ctx, "close storage", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...")

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHandler(app.userService, app.logger))

	srv := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger)
	if err := srv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}
