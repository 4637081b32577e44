// Package orders holds the minimal order model the dashboard reads
// revenue from. Checkout and payment capture live outside this engine;
// only the persisted result matters here.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusRefunded = "refunded"
)

// Order is a completed or in-flight course purchase.
type Order struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Reference   string    `gorm:"uniqueIndex;size:36;not null"`
	VisitorID   string    `gorm:"index;size:64"`
	CourseSlug  string    `gorm:"index;size:128;not null"`
	AmountCents int64     `gorm:"not null"`
	Currency    string    `gorm:"size:3;not null;default:USD"`
	Status      string    `gorm:"index;size:16;not null;default:pending"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// NewOrder creates a pending order with a fresh reference.
func NewOrder(visitorID, courseSlug string, amountCents int64, currency string) *Order {
	return &Order{
		Reference:   uuid.NewString(),
		VisitorID:   visitorID,
		CourseSlug:  courseSlug,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      StatusPending,
	}
}

// Store provides order reads for the dashboard.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RevenueCentsBetween sums paid-order revenue over the half-open
// interval [start, end).
func (s *Store) RevenueCentsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&Order{}).
		Where("status = ? AND created_at >= ? AND created_at < ?", StatusPaid, start, end).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum order revenue: %w", err)
	}
	return total, nil
}

// CountPaidBetween counts paid orders over the half-open interval [start, end).
func (s *Store) CountPaidBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Order{}).
		Where("status = ? AND created_at >= ? AND created_at < ?", StatusPaid, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count paid orders: %w", err)
	}
	return count, nil
}
