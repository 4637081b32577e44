package pageviews

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store is the persistence contract the analytics engine depends on.
// Reads and writes are synchronous; callers scope them with a context.
type Store interface {
	InsertEvent(ctx context.Context, view *PageView) error
	SelectEventsBefore(ctx context.Context, cutoff time.Time) ([]PageView, error)
	SelectEventsBetween(ctx context.Context, start, end time.Time) ([]PageView, error)
	CountEvents(ctx context.Context) (int64, error)
	CountEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	OldestEventTimestamp(ctx context.Context) (*time.Time, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	UpsertDailySummaries(ctx context.Context, summaries []DailySummary) error
	SummariesBetween(ctx context.Context, fromDate, toDate string) ([]DailySummary, error)
}

// GormStore implements Store on the application's SQLite database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) InsertEvent(ctx context.Context, view *PageView) error {
	if view.CreatedAt.IsZero() {
		view.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(view).Error; err != nil {
		return fmt.Errorf("failed to insert page view: %w", err)
	}
	return nil
}

func (s *GormStore) SelectEventsBefore(ctx context.Context, cutoff time.Time) ([]PageView, error) {
	var events []PageView
	err := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select page views before cutoff: %w", err)
	}
	return events, nil
}

func (s *GormStore) SelectEventsBetween(ctx context.Context, start, end time.Time) ([]PageView, error) {
	var events []PageView
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select page views in range: %w", err)
	}
	return events, nil
}

func (s *GormStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&PageView{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count page views: %w", err)
	}
	return count, nil
}

func (s *GormStore) CountEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&PageView{}).
		Where("created_at < ?", cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count page views before cutoff: %w", err)
	}
	return count, nil
}

func (s *GormStore) OldestEventTimestamp(ctx context.Context) (*time.Time, error) {
	var view PageView
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		First(&view).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find oldest page view: %w", err)
	}
	ts := view.CreatedAt
	return &ts, nil
}

// DeleteEventsBefore removes all page views older than cutoff in one
// bulk statement. The delete is scoped by the cutoff predicate rather
// than by selected IDs, so a concurrent cycle deleting the same rows
// is a harmless no-op.
func (s *GormStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&PageView{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete page views before cutoff: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpsertDailySummaries writes summaries keyed by date, overwriting on
// conflict. Summaries replace rather than accumulate, which is what
// makes retention cycle retries safe.
func (s *GormStore) UpsertDailySummaries(ctx context.Context, summaries []DailySummary) error {
	if len(summaries) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		query := `
			INSERT INTO daily_summaries (
				date, landing_total_visits, landing_unique_visitors,
				checkout_total_visits, checkout_unique_visitors, conversion_rate,
				created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (date) DO UPDATE SET
				landing_total_visits = excluded.landing_total_visits,
				landing_unique_visitors = excluded.landing_unique_visitors,
				checkout_total_visits = excluded.checkout_total_visits,
				checkout_unique_visitors = excluded.checkout_unique_visitors,
				conversion_rate = excluded.conversion_rate,
				updated_at = ?
		`
		for _, summary := range summaries {
			err := tx.Exec(query,
				summary.Date,
				summary.LandingTotalVisits, summary.LandingUniqueVisitors,
				summary.CheckoutTotalVisits, summary.CheckoutUniqueVisitors,
				summary.ConversionRate,
				now, now, now).Error
			if err != nil {
				return fmt.Errorf("failed to upsert daily summary for %s: %w", summary.Date, err)
			}
		}
		return nil
	})
}

func (s *GormStore) SummariesBetween(ctx context.Context, fromDate, toDate string) ([]DailySummary, error) {
	var summaries []DailySummary
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", fromDate, toDate).
		Order("date ASC").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select daily summaries: %w", err)
	}
	return summaries, nil
}
