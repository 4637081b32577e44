// Package localtime maps UTC instants to business calendar days and
// months in a fixed UTC offset, independent of the host timezone.
package localtime

import (
	"fmt"
	"log/slog"
	"time"
)

// DateFormat is the canonical business date layout.
const DateFormat = "2006-01-02"

// Boundaries is a UTC instant pair delimiting a local day or month.
// Day boundaries are inclusive on both ends; month boundaries are
// half-open, End is the first instant of the following month.
type Boundaries struct {
	Start time.Time
	End   time.Time
}

// TimeProvider supplies the current time, injectable for tests.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Calculator derives day/month boundaries for a fixed-offset business
// timezone, caching computed boundaries for a short TTL.
type Calculator struct {
	loc    *time.Location
	cache  *BoundaryCache
	clock  TimeProvider
	logger *slog.Logger
}

// NewCalculator builds a Calculator for the given UTC offset in hours.
func NewCalculator(offsetHours int, cacheTTL time.Duration, logger *slog.Logger, clock ...TimeProvider) *Calculator {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(clock) > 0 && clock[0] != nil {
		provider = clock[0]
	}

	name := fmt.Sprintf("UTC%+d", offsetHours)
	return &Calculator{
		loc:    time.FixedZone(name, offsetHours*3600),
		cache:  NewBoundaryCache(cacheTTL, provider),
		clock:  provider,
		logger: logger,
	}
}

// Location returns the fixed business timezone.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// DateOf returns the local calendar date string for an instant.
func (c *Calculator) DateOf(t time.Time) string {
	return t.In(c.loc).Format(DateFormat)
}

// DayBoundaries returns the start and end instants of the local
// calendar day containing t, both expressed in UTC.
func (c *Calculator) DayBoundaries(t time.Time) Boundaries {
	return c.DayBoundariesForDate(c.DateOf(t))
}

// DayBoundariesForDate returns the boundaries for a local calendar
// date string. An unparseable date falls back to today and logs a
// warning; boundary math feeds reporting and must never fail the caller.
func (c *Calculator) DayBoundariesForDate(date string) Boundaries {
	parsed, err := time.ParseInLocation(DateFormat, date, c.loc)
	if err != nil {
		c.logger.Warn("Invalid date for day boundaries, falling back to today",
			slog.String("date", date),
			slog.Any("error", err))
		parsed = c.clock.Now().In(c.loc)
	}

	key := "day:" + parsed.Format(DateFormat)
	if b, ok := c.cache.Get(key); ok {
		return b
	}

	year, month, day := parsed.Date()
	b := Boundaries{
		Start: time.Date(year, month, day, 0, 0, 0, 0, c.loc).UTC(),
		End:   time.Date(year, month, day, 23, 59, 59, 999_000_000, c.loc).UTC(),
	}
	c.cache.Set(key, b)
	return b
}

// MonthBoundaries returns the half-open [Start, End) boundaries of the
// local calendar month containing t, expressed in UTC. End is the
// first instant of the next month, so a December input yields an End
// in January of the following year.
func (c *Calculator) MonthBoundaries(t time.Time) Boundaries {
	local := t.In(c.loc)

	key := "month:" + local.Format("2006-01")
	if b, ok := c.cache.Get(key); ok {
		return b
	}

	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, c.loc)
	b := Boundaries{
		Start: start.UTC(),
		End:   start.AddDate(0, 1, 0).UTC(),
	}
	c.cache.Set(key, b)
	return b
}

// MonthBoundariesForDate resolves a local date string to its month
// boundaries, falling back to the current month on parse failure.
func (c *Calculator) MonthBoundariesForDate(date string) Boundaries {
	parsed, err := time.ParseInLocation(DateFormat, date, c.loc)
	if err != nil {
		c.logger.Warn("Invalid date for month boundaries, falling back to current month",
			slog.String("date", date),
			slog.Any("error", err))
		return c.MonthBoundaries(c.clock.Now())
	}
	return c.MonthBoundaries(parsed)
}

// PreviousMonthBoundaries returns the boundaries of the local month
// preceding the one containing t.
func (c *Calculator) PreviousMonthBoundaries(t time.Time) Boundaries {
	local := t.In(c.loc)
	firstOfMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, c.loc)
	return c.MonthBoundaries(firstOfMonth.AddDate(0, 0, -1))
}

// DateRange returns boundaries covering the `days` local calendar days
// ending with the day containing `from`: the start of day
// from-(days-1) through the end of day `from`.
func (c *Calculator) DateRange(days int, from time.Time) Boundaries {
	if days < 1 {
		days = 1
	}
	first := c.DayBoundaries(from.In(c.loc).AddDate(0, 0, -(days - 1)))
	last := c.DayBoundaries(from)
	return Boundaries{Start: first.Start, End: last.End}
}

// SweepCache evicts boundary cache entries older than the TTL.
func (c *Calculator) SweepCache() {
	c.cache.Sweep()
}

// Dates returns the local date strings for the `days` calendar days
// ending with the day containing `from`, oldest first.
func (c *Calculator) Dates(days int, from time.Time) []string {
	if days < 1 {
		days = 1
	}
	local := from.In(c.loc)
	dates := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, local.AddDate(0, 0, -i).Format(DateFormat))
	}
	return dates
}
