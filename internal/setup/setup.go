package setup

import (
	"context"
	"fmt"

	"github.com/bytegrab/bytegrab/internal/database"
	"github.com/bytegrab/bytegrab/internal/setup/config"
	"github.com/bytegrab/bytegrab/internal/setup/logging"
	"go.uber.org/zap"
)

// App bundles the core dependencies shared by the binaries.
type App struct {
	Config   *config.Config  // Application configuration
	Logger   *zap.Logger     // Main application logger
	DBLogger *zap.Logger     // Database-specific logger
	DB       database.Client // Database connection pool
}

// InitializeApp bootstraps configuration, logging and the database in
// dependency order. Migrations run automatically so a fresh database is
// usable without a separate management step.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := logging.NewLoggers(&cfg.Debug, logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create loggers: %w", err)
	}

	logger.Info("Loaded configuration", zap.String("configDir", configDir))

	db, err := database.NewConnection(ctx, cfg, dbLogger, true)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		DBLogger: dbLogger,
		DB:       db,
	}, nil
}

// Cleanup releases resources in reverse initialization order.
func (a *App) Cleanup() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database", zap.Error(err))
	}

	_ = a.Logger.Sync()
	_ = a.DBLogger.Sync()
}
