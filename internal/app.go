// Package internal contains core application functionality
package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"coursepulse/internal/config"
	"coursepulse/internal/dashboard"
	"coursepulse/internal/database"
	"coursepulse/internal/http"
	"coursepulse/internal/jobs"
	"coursepulse/internal/localtime"
	"coursepulse/internal/logging"
	"coursepulse/internal/orders"
	"coursepulse/internal/pageviews"
	"coursepulse/internal/retention"
)

// Application wires the analytics engine together: database, boundary
// calculator, retention scheduler, and the HTTP surface.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.DBManager
	Scheduler *jobs.Scheduler

	fiberApp *fiber.App
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application from the given config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db := dbManager.GetConnection()

	calc := localtime.NewCalculator(cfg.BusinessUTCOffsetHours, cfg.BoundaryCacheTTL(), logger)
	aggregator := pageviews.NewAggregator(calc, cfg.LandingPagePath, cfg.CheckoutPagePath)
	store := pageviews.NewGormStore(db)
	cycle := retention.NewCycle(store, aggregator, calc, logger, cfg.RetentionWindow())
	reader := dashboard.NewReader(store, aggregator, calc, orders.NewStore(db), logger)

	scheduler, err := jobs.NewScheduler(cycle, calc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	handlers := http.NewHandlers(cfg, db, store, reader, cycle, logger)
	fiberApp := http.NewApp(cfg, handlers)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		Scheduler: scheduler,
		fiberApp:  fiberApp,
	}, nil
}

// StartAsync starts the background jobs and the HTTP listener without
// blocking. Listener errors are fatal, there is nothing to serve without it.
func (a *Application) StartAsync() error {
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	addr := ":" + a.Config.AppPort
	a.Logger.Info("Starting HTTP server", slog.String("addr", addr))
	go func() {
		if err := a.fiberApp.Listen(addr); err != nil {
			a.Logger.Error("HTTP server stopped", slog.Any("error", err))
		}
	}()

	return nil
}

// Shutdown stops background jobs, drains the HTTP server, and closes
// the database.
func (a *Application) Shutdown(ctx context.Context) error {
	a.Scheduler.Stop()

	if err := a.fiberApp.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	if err := a.DBManager.CheckpointWAL("TRUNCATE"); err != nil {
		a.Logger.Warn("Failed to checkpoint WAL on shutdown", slog.Any("error", err))
	}

	db := a.DBManager.GetConnection()
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Warn("Failed to close database", slog.Any("error", err))
			}
		}
	}

	return nil
}
