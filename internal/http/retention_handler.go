package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"coursepulse/internal/retention"
)

// RetentionStatsAction previews what the next cleanup would do.
func (h *Handlers) RetentionStatsAction(c *fiber.Ctx) error {
	stats, err := h.cycle.Stats(c.Context())
	if err != nil {
		h.logger.Error("Failed to compute retention stats", slog.Any("error", err))
		return retentionError(c, err)
	}
	return c.JSON(stats)
}

// RetentionCleanupAction triggers one archive-and-purge cycle and
// reports what it did.
func (h *Handlers) RetentionCleanupAction(c *fiber.Ctx) error {
	h.logger.Info("Manual retention cleanup triggered")

	result, err := h.cycle.Run(c.Context())
	if err != nil {
		h.logger.Error("Manual retention cleanup failed", slog.Any("error", err))
		return retentionError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Cleanup completed",
		"result":  result,
	})
}

func retentionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, retention.ErrStoreUnavailable) {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Event store unavailable, retry later",
			"code":  "STORE_UNAVAILABLE",
		})
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Retention cycle failed",
		"code":  "RETENTION_ERROR",
	})
}
