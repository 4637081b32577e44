// Package http exposes the tracking, dashboard, and admin endpoints
// over fiber.
package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"coursepulse/internal/config"
	"coursepulse/internal/dashboard"
	"coursepulse/internal/http/middleware"
	"coursepulse/internal/pageviews"
	"coursepulse/internal/retention"
)

// Handlers bundles the dependencies the HTTP actions read from.
type Handlers struct {
	db           *gorm.DB
	store        pageviews.Store
	reader       *dashboard.Reader
	cycle        *retention.Cycle
	logger       *slog.Logger
	trackedPaths map[string]bool
}

func NewHandlers(
	cfg *config.Config,
	db *gorm.DB,
	store pageviews.Store,
	reader *dashboard.Reader,
	cycle *retention.Cycle,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		db:     db,
		store:  store,
		reader: reader,
		cycle:  cycle,
		logger: logger,
		trackedPaths: map[string]bool{
			cfg.LandingPagePath:  true,
			cfg.CheckoutPagePath: true,
		},
	}
}

// NewApp builds the fiber application with all routes mounted.
func NewApp(cfg *config.Config, handlers *Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsTest(),
	})

	app.Use(recover.New())

	MountRoutes(app, cfg, handlers)

	return app
}

// MountRoutes registers all application routes.
func MountRoutes(app *fiber.App, cfg *config.Config, h *Handlers) {
	// Public tracking endpoint: permissive CORS so the snippet can post
	// from the course site, rate limited in production only since it
	// would interfere with testing otherwise.
	public := app.Group("/api/v1",
		cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "POST,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept",
		}),
		conditionalRateLimiter(cfg, 70, time.Minute),
	)
	public.Post("/track", h.TrackAction)

	app.Get("/health", h.HealthIndexAction)

	// Admin API: everything behind the API key
	admin := app.Group("/admin/api", middleware.AdminAPIKeyAuth(cfg.AdminAPIKey, h.logger))
	admin.Get("/retention/stats", h.RetentionStatsAction)
	admin.Post("/retention/cleanup", h.RetentionCleanupAction)
	admin.Get("/dashboard/today", h.DashboardTodayAction)
	admin.Get("/dashboard/daily", h.DashboardDailyAction)
	admin.Get("/dashboard/months", h.DashboardMonthsAction)
	admin.Get("/dashboard/weekly", h.DashboardWeeklyAction)
}

func conditionalRateLimiter(cfg *config.Config, max int, window time.Duration) fiber.Handler {
	rateLimiter := limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
	})
	return func(c *fiber.Ctx) error {
		if cfg.IsProduction() {
			return rateLimiter(c)
		}
		return c.Next()
	}
}
