package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"coursepulse/internal/pageviews"
)

const (
	msgEventAdded     = "Page view recorded"
	errInvalidRequest = "Invalid request"
)

type TrackParams struct {
	Path      string    `json:"path"`
	VisitorID string    `json:"visitorId"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackAction ingests a single page view from the tracking snippet.
func (h *Handlers) TrackAction(c *fiber.Ctx) error {
	var params TrackParams
	if err := c.BodyParser(&params); err != nil {
		h.logger.Debug("Failed to parse track request", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  "INVALID_BODY",
		})
	}

	// Only the pages the funnel cares about; everything else would be
	// dead weight in the raw store.
	if !h.trackedPaths[params.Path] {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Untracked page path",
			"code":  "INVALID_PATH",
		})
	}

	if !pageviews.ValidVisitorID(params.VisitorID) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed visitor ID",
			"code":  "INVALID_VISITOR_ID",
		})
	}

	view := &pageviews.PageView{
		PagePath:  params.Path,
		VisitorID: params.VisitorID,
		CreatedAt: params.Timestamp.UTC(),
	}
	if params.Timestamp.IsZero() {
		view.CreatedAt = time.Now().UTC()
	}

	if err := h.store.InsertEvent(c.Context(), view); err != nil {
		h.logger.Error("Failed to record page view", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record page view",
			"code":  "COLLECTION_ERROR",
		})
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAdded,
		"status":  http.StatusAccepted,
	})
}
