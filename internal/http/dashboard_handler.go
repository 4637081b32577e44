package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"coursepulse/internal/dashboard"
)

const (
	defaultDailyDays = 7
	maxDailyDays     = 90
)

// DashboardTodayAction returns today's traffic, aggregated live.
func (h *Handlers) DashboardTodayAction(c *fiber.Ctx) error {
	summary, err := h.reader.TodayTraffic(c.Context())
	if err != nil {
		h.logger.Error("Failed to load today's traffic", slog.Any("error", err))
		return dashboardError(c, err)
	}
	return c.JSON(summary)
}

// DashboardDailyAction returns one summary per day for the trailing
// `days` days, oldest first.
func (h *Handlers) DashboardDailyAction(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", strconv.Itoa(defaultDailyDays)))
	if err != nil || days < 1 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "days must be a positive integer",
			"code":  "INVALID_DAYS",
		})
	}
	if days > maxDailyDays {
		days = maxDailyDays
	}

	summaries, err := h.reader.LastNDays(c.Context(), days)
	if err != nil {
		h.logger.Error("Failed to load daily summaries", slog.Any("error", err))
		return dashboardError(c, err)
	}
	return c.JSON(fiber.Map{"days": summaries})
}

// DashboardMonthsAction compares the current local month with the previous one.
func (h *Handlers) DashboardMonthsAction(c *fiber.Ctx) error {
	comparison, err := h.reader.MonthOverMonth(c.Context())
	if err != nil {
		h.logger.Error("Failed to load month comparison", slog.Any("error", err))
		return dashboardError(c, err)
	}
	return c.JSON(comparison)
}

// DashboardWeeklyAction compares the trailing 7 days with the 7 before them.
func (h *Handlers) DashboardWeeklyAction(c *fiber.Ctx) error {
	comparison, err := h.reader.WeekOverWeek(c.Context())
	if err != nil {
		h.logger.Error("Failed to load week comparison", slog.Any("error", err))
		return dashboardError(c, err)
	}
	return c.JSON(comparison)
}

func dashboardError(c *fiber.Ctx, err error) error {
	if errors.Is(err, dashboard.ErrDataUnavailable) {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Analytics data unavailable, retry later",
			"code":  "DATA_UNAVAILABLE",
		})
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to load dashboard data",
		"code":  "DASHBOARD_ERROR",
	})
}
