// Package pageviews holds the raw page-view event model, the daily
// summary model, and the aggregation that turns one into the other.
package pageviews

import (
	"regexp"
	"time"
)

// PageView is a raw page-view event recorded by the tracking endpoint.
// Rows are immutable after insert and are deleted by the retention
// cycle once durably summarized.
type PageView struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PagePath  string    `gorm:"index;size:255;not null"`
	VisitorID string    `gorm:"index;size:64;not null"`
	CreatedAt time.Time `gorm:"index;not null"`
}

// DailySummary is the durable per-local-day rollup of raw page views,
// keyed by the business calendar date. Rows are upserted whole by the
// retention cycle and never deleted.
type DailySummary struct {
	ID                     uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Date                   string    `gorm:"uniqueIndex;size:10;not null" json:"date"`
	LandingTotalVisits     int       `gorm:"not null;default:0" json:"landing_total_visits"`
	LandingUniqueVisitors  int       `gorm:"not null;default:0" json:"landing_unique_visitors"`
	CheckoutTotalVisits    int       `gorm:"not null;default:0" json:"checkout_total_visits"`
	CheckoutUniqueVisitors int       `gorm:"not null;default:0" json:"checkout_unique_visitors"`
	ConversionRate         float64   `gorm:"not null;default:0" json:"conversion_rate"`
	CreatedAt              time.Time `json:"-"`
	UpdatedAt              time.Time `json:"-"`
}

// Visitor IDs are assigned client-side: a 13-digit millisecond
// timestamp, a dash, and a random lowercase alphanumeric suffix.
var visitorIDPattern = regexp.MustCompile(`^[0-9]{13}-[a-z0-9]{6,16}$`)

// ValidVisitorID reports whether id matches the expected format.
func ValidVisitorID(id string) bool {
	return visitorIDPattern.MatchString(id)
}
