package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"coursepulse/internal/config"
	"coursepulse/internal/dashboard"
	coursehttp "coursepulse/internal/http"
	"coursepulse/internal/localtime"
	"coursepulse/internal/orders"
	"coursepulse/internal/pageviews"
	"coursepulse/internal/retention"
	"coursepulse/internal/testsupport"
)

const testAPIKey = "test-admin-key"

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	cfg := &config.Config{
		AppName:          "coursepulse-test",
		Environment:      "test",
		AdminAPIKey:      testAPIKey,
		LandingPagePath:  "/",
		CheckoutPagePath: "/checkout",
	}

	calc := localtime.NewCalculator(8, 5*time.Minute, logger)
	agg := pageviews.NewAggregator(calc, "/", "/checkout")
	store := pageviews.NewGormStore(db)
	cycle := retention.NewCycle(store, agg, calc, logger, 3*24*time.Hour)
	reader := dashboard.NewReader(store, agg, calc, orders.NewStore(db), logger)

	handlers := coursehttp.NewHandlers(cfg, db, store, reader, cycle, logger)
	return coursehttp.NewApp(cfg, handlers), db
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any, headers map[string]string) *nethttp.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *nethttp.Response, out any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestTrackAction(t *testing.T) {
	t.Run("accepts valid page view", func(t *testing.T) {
		app, db := newTestApp(t)

		resp := postJSON(t, app, "/api/v1/track", map[string]any{
			"path":      "/checkout",
			"visitorId": testsupport.VisitorID(1),
		}, nil)
		assert.Equal(t, nethttp.StatusAccepted, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&pageviews.PageView{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects malformed visitor ID", func(t *testing.T) {
		app, db := newTestApp(t)

		resp := postJSON(t, app, "/api/v1/track", map[string]any{
			"path":      "/",
			"visitorId": "not-a-visitor-id",
		}, nil)
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

		var body map[string]any
		decodeBody(t, resp, &body)
		assert.Equal(t, "INVALID_VISITOR_ID", body["code"])

		var count int64
		require.NoError(t, db.Model(&pageviews.PageView{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("rejects untracked path", func(t *testing.T) {
		app, _ := newTestApp(t)

		resp := postJSON(t, app, "/api/v1/track", map[string]any{
			"path":      "/pricing",
			"visitorId": testsupport.VisitorID(1),
		}, nil)
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	})

	t.Run("keeps caller timestamp", func(t *testing.T) {
		app, db := newTestApp(t)
		sent := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)

		resp := postJSON(t, app, "/api/v1/track", map[string]any{
			"path":      "/",
			"visitorId": testsupport.VisitorID(2),
			"timestamp": sent,
		}, nil)
		assert.Equal(t, nethttp.StatusAccepted, resp.StatusCode)

		var view pageviews.PageView
		require.NoError(t, db.First(&view).Error)
		assert.True(t, view.CreatedAt.Equal(sent))
	})
}

func TestAdminAPIKeyAuth(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("rejects missing key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/retention/stats", nil)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/retention/stats", nil)
		req.Header.Set("Authorization", "Bearer wrong-key")
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("accepts valid key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/retention/stats", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	})
}

func TestRetentionEndpoints(t *testing.T) {
	app, db := newTestApp(t)
	auth := map[string]string{"Authorization": "Bearer " + testAPIKey}

	// Two old events outside the 3-day window, one recent
	old := time.Now().UTC().AddDate(0, 0, -10)
	testsupport.CreatePageView(t, db, "/", testsupport.VisitorID(1), old)
	testsupport.CreatePageView(t, db, "/checkout", testsupport.VisitorID(1), old.Add(time.Hour))
	testsupport.CreatePageView(t, db, "/", testsupport.VisitorID(2), time.Now().UTC())

	t.Run("stats previews cleanup", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/retention/stats", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)

		var stats retention.Stats
		decodeBody(t, resp, &stats)
		assert.Equal(t, int64(3), stats.CurrentRecordCount)
		assert.True(t, stats.CanCleanup)
		assert.Equal(t, int64(2), stats.RecordsToCleanup)
	})

	t.Run("cleanup archives and purges", func(t *testing.T) {
		resp := postJSON(t, app, "/admin/api/retention/cleanup", nil, auth)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)

		var body struct {
			Message string           `json:"message"`
			Result  retention.Result `json:"result"`
		}
		decodeBody(t, resp, &body)
		assert.Equal(t, int64(2), body.Result.RecordsArchived)
		assert.Equal(t, int64(2), body.Result.RecordsDeleted)

		var remaining int64
		require.NoError(t, db.Model(&pageviews.PageView{}).Count(&remaining).Error)
		assert.Equal(t, int64(1), remaining)

		var summaries int64
		require.NoError(t, db.Model(&pageviews.DailySummary{}).Count(&summaries).Error)
		assert.NotZero(t, summaries)
	})
}

func TestDashboardEndpoints(t *testing.T) {
	app, db := newTestApp(t)

	testsupport.CreatePageView(t, db, "/", testsupport.VisitorID(1), time.Now().UTC())

	t.Run("today returns live traffic", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/dashboard/today", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)

		var summary pageviews.DailySummary
		decodeBody(t, resp, &summary)
		assert.Equal(t, 1, summary.LandingTotalVisits)
	})

	t.Run("daily clamps and zero-fills", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/dashboard/daily?days=5", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)

		var body struct {
			Days []pageviews.DailySummary `json:"days"`
		}
		decodeBody(t, resp, &body)
		assert.Len(t, body.Days, 5)
	})

	t.Run("daily rejects bad days", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/dashboard/daily?days=zero", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	})

	t.Run("weekly comparison responds", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/api/dashboard/weekly", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)

		var week dashboard.WeekComparison
		decodeBody(t, resp, &week)
		assert.Equal(t, 1, week.CurrentVisits)
	})
}
