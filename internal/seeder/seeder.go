// Package seeder generates realistic development data: page views
// over a trailing window and paid orders for a share of checkout
// visitors.
package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"coursepulse/internal/config"
	"coursepulse/internal/orders"
	"coursepulse/internal/pageviews"
)

// Seeder handles the data seeding process.
type Seeder struct {
	DB           *gorm.DB
	Logger       *slog.Logger
	VisitorCount int
	Days         int

	cfg *config.Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, logger *slog.Logger, visitorCount, days int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DB:           db,
		Logger:       logger,
		VisitorCount: visitorCount,
		Days:         days,
		cfg:          config.GetConfig(),
	}
}

// Seed generates visits and orders over the trailing window.
func (s *Seeder) Seed(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding development data...",
		slog.Int("visitors", s.VisitorCount),
		slog.Int("days", s.Days))

	store := pageviews.NewGormStore(s.DB)
	now := time.Now().UTC()
	courseSlugs := []string{"go-fundamentals", "concurrent-go", "web-apis-in-go"}

	seeded := 0
	for i := 0; i < s.VisitorCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		visitorID := fakeVisitorID(now, i)
		visitedAt := now.
			AddDate(0, 0, -rand.IntN(s.Days)).
			Add(-time.Duration(rand.IntN(12)) * time.Hour)

		// Everyone lands; some browse twice
		views := []time.Time{visitedAt}
		if rand.IntN(100) < 35 {
			views = append(views, visitedAt.Add(time.Duration(1+rand.IntN(40))*time.Minute))
		}
		for _, ts := range views {
			err := store.InsertEvent(ctx, &pageviews.PageView{
				PagePath:  s.cfg.LandingPagePath,
				VisitorID: visitorID,
				CreatedAt: ts,
			})
			if err != nil {
				return fmt.Errorf("failed to seed landing view: %w", err)
			}
			seeded++
		}

		// Roughly one in eight reaches checkout
		if rand.IntN(100) >= 12 {
			continue
		}
		checkoutAt := visitedAt.Add(time.Duration(2+rand.IntN(20)) * time.Minute)
		err := store.InsertEvent(ctx, &pageviews.PageView{
			PagePath:  s.cfg.CheckoutPagePath,
			VisitorID: visitorID,
			CreatedAt: checkoutAt,
		})
		if err != nil {
			return fmt.Errorf("failed to seed checkout view: %w", err)
		}
		seeded++

		// Most checkout visitors pay
		if rand.IntN(100) < 70 {
			order := orders.NewOrder(visitorID, courseSlugs[rand.IntN(len(courseSlugs))], int64(4900+rand.IntN(5)*1000), "USD")
			order.Status = orders.StatusPaid
			order.CreatedAt = checkoutAt.Add(time.Duration(1+rand.IntN(10)) * time.Minute)
			if err := s.DB.WithContext(ctx).Create(order).Error; err != nil {
				return fmt.Errorf("failed to seed order: %w", err)
			}
		}
	}

	s.Logger.Info("Seeding completed",
		slog.Int("page_views", seeded),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// fakeVisitorID builds an ID in the client snippet's format.
func fakeVisitorID(now time.Time, seed int) string {
	millis := now.UnixMilli() - int64(seed)*31337
	return fmt.Sprintf("%013d-%06x", millis, rand.IntN(0xffffff))
}
