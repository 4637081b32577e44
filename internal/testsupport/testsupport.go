// Package testsupport provides shared helpers for package tests:
// in-memory databases, loggers, and event seeding.
package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coursepulse/internal/orders"
	"coursepulse/internal/pageviews"
)

// GetLogger returns a logger that discards all output.
func GetLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDB creates an isolated in-memory SQLite database with all
// engine models migrated. Each call returns a fresh database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A unique DSN per call keeps shared-cache databases isolated
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", t.Name(), rand.Int63())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, db.AutoMigrate(
		&pageviews.PageView{},
		&pageviews.DailySummary{},
		&orders.Order{},
	), "failed to migrate test database")

	return db
}

// CreatePageView inserts a raw page-view row with an explicit timestamp.
func CreatePageView(t *testing.T, db *gorm.DB, path, visitorID string, createdAt time.Time) {
	t.Helper()
	view := pageviews.PageView{
		PagePath:  path,
		VisitorID: visitorID,
		CreatedAt: createdAt.UTC(),
	}
	require.NoError(t, db.Create(&view).Error, "failed to create test page view")
}

// CreateOrder inserts a paid order with the given amount and timestamp.
func CreateOrder(t *testing.T, db *gorm.DB, amountCents int64, createdAt time.Time) {
	t.Helper()
	order := orders.NewOrder("1709312400000-seeded", "go-course", amountCents, "USD")
	order.Status = orders.StatusPaid
	order.CreatedAt = createdAt.UTC()
	require.NoError(t, db.Create(order).Error, "failed to create test order")
}

// VisitorID builds a well-formed visitor ID from a numeric seed.
func VisitorID(seed int) string {
	return fmt.Sprintf("%013d-v%05dab", 1709312400000+int64(seed), seed)
}
