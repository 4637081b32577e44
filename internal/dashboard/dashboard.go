// Package dashboard answers reporting queries by combining live raw
// page views with archived daily summaries.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"coursepulse/internal/localtime"
	"coursepulse/internal/pageviews"
)

// ErrDataUnavailable marks a query that could not be answered because
// the underlying store was unreachable. Callers decide how to degrade;
// the reader never fabricates zeros.
var ErrDataUnavailable = errors.New("analytics data unavailable")

// RevenueSource provides order revenue over half-open intervals.
type RevenueSource interface {
	RevenueCentsBetween(ctx context.Context, start, end time.Time) (int64, error)
}

// Reader merges live and archived page-view data into dashboard
// metrics. Live days are aggregated with the same Aggregator the
// retention cycle uses, so fresh and archived data count identically.
type Reader struct {
	store      pageviews.Store
	aggregator *pageviews.Aggregator
	calc       *localtime.Calculator
	revenue    RevenueSource
	logger     *slog.Logger
	clock      localtime.TimeProvider
}

func NewReader(
	store pageviews.Store,
	aggregator *pageviews.Aggregator,
	calc *localtime.Calculator,
	revenue RevenueSource,
	logger *slog.Logger,
	clock ...localtime.TimeProvider,
) *Reader {
	var provider localtime.TimeProvider = &localtime.DefaultTimeProvider{}
	if len(clock) > 0 && clock[0] != nil {
		provider = clock[0]
	}
	return &Reader{
		store:      store,
		aggregator: aggregator,
		calc:       calc,
		revenue:    revenue,
		logger:     logger,
		clock:      provider,
	}
}

// MonthMetrics holds one month's visit and revenue totals.
type MonthMetrics struct {
	Month        string `json:"month"`
	Visits       int    `json:"visits"`
	RevenueCents int64  `json:"revenue_cents"`
}

// MonthComparison compares the current local month against the previous one.
type MonthComparison struct {
	Current          MonthMetrics `json:"current"`
	Previous         MonthMetrics `json:"previous"`
	VisitsChangePct  float64      `json:"visits_change_pct"`
	RevenueChangePct float64      `json:"revenue_change_pct"`
}

// WeekComparison compares visit totals of the trailing 7 local days
// against the 7 days before them.
type WeekComparison struct {
	CurrentVisits  int     `json:"current_visits"`
	PreviousVisits int     `json:"previous_visits"`
	GrowthPct      float64 `json:"growth_pct"`
}

// TodayTraffic aggregates today's raw events live. Today's data is
// never archived yet, the retention window is at least one day.
func (r *Reader) TodayTraffic(ctx context.Context) (pageviews.DailySummary, error) {
	now := r.clock.Now()
	today := r.calc.DateOf(now)
	b := r.calc.DayBoundaries(now)

	events, err := r.store.SelectEventsBetween(ctx, b.Start, b.End)
	if err != nil {
		r.logger.Warn("Failed to read today's raw page views", slog.Any("error", err))
		return pageviews.DailySummary{}, unavailable("today's traffic", err)
	}

	summaries := r.aggregator.Aggregate(events)
	if len(summaries) == 0 {
		return pageviews.DailySummary{Date: today}, nil
	}
	return summaries[0], nil
}

// LastNDays returns one summary per local day for the trailing n days,
// oldest first. Archived days come from daily summaries; days still
// inside the retention window are aggregated live. Days without any
// data are zero-filled so charts keep a continuous axis.
func (r *Reader) LastNDays(ctx context.Context, n int) ([]pageviews.DailySummary, error) {
	now := r.clock.Now()
	dates := r.calc.Dates(n, now)
	bounds := r.calc.DateRange(n, now)

	merged, err := r.mergedRange(ctx, dates, bounds.Start, bounds.End)
	if err != nil {
		return nil, err
	}

	result := make([]pageviews.DailySummary, 0, len(dates))
	for _, date := range dates {
		if summary, ok := merged[date]; ok {
			result = append(result, summary)
		} else {
			result = append(result, pageviews.DailySummary{Date: date})
		}
	}
	return result, nil
}

// MonthOverMonth compares visits and order revenue of the current
// local month against the previous one, both over half-open intervals.
func (r *Reader) MonthOverMonth(ctx context.Context) (MonthComparison, error) {
	now := r.clock.Now()
	current := r.calc.MonthBoundaries(now)
	previous := r.calc.PreviousMonthBoundaries(now)

	currentMetrics, err := r.monthMetrics(ctx, current)
	if err != nil {
		return MonthComparison{}, err
	}
	previousMetrics, err := r.monthMetrics(ctx, previous)
	if err != nil {
		return MonthComparison{}, err
	}

	return MonthComparison{
		Current:          currentMetrics,
		Previous:         previousMetrics,
		VisitsChangePct:  PercentChange(float64(currentMetrics.Visits), float64(previousMetrics.Visits)),
		RevenueChangePct: PercentChange(float64(currentMetrics.RevenueCents), float64(previousMetrics.RevenueCents)),
	}, nil
}

// WeekOverWeek compares total visits of the trailing 7 local days with
// the 7 days before them.
func (r *Reader) WeekOverWeek(ctx context.Context) (WeekComparison, error) {
	now := r.clock.Now()

	currentDays, err := r.LastNDays(ctx, 7)
	if err != nil {
		return WeekComparison{}, err
	}

	prevEnd := now.In(r.calc.Location()).AddDate(0, 0, -7)
	prevDates := r.calc.Dates(7, prevEnd)
	prevBounds := r.calc.DateRange(7, prevEnd)
	prevMerged, err := r.mergedRange(ctx, prevDates, prevBounds.Start, prevBounds.End)
	if err != nil {
		return WeekComparison{}, err
	}

	currentVisits := 0
	for _, s := range currentDays {
		currentVisits += s.LandingTotalVisits + s.CheckoutTotalVisits
	}
	previousVisits := 0
	for _, s := range prevMerged {
		previousVisits += s.LandingTotalVisits + s.CheckoutTotalVisits
	}

	return WeekComparison{
		CurrentVisits:  currentVisits,
		PreviousVisits: previousVisits,
		GrowthPct:      PercentChange(float64(currentVisits), float64(previousVisits)),
	}, nil
}

// monthMetrics sums visits and revenue over a half-open month interval.
func (r *Reader) monthMetrics(ctx context.Context, b localtime.Boundaries) (MonthMetrics, error) {
	local := b.Start.In(r.calc.Location())
	metrics := MonthMetrics{Month: local.Format("2006-01")}

	dates := monthDates(local)
	// End is exclusive; the last instant belongs to the next month
	merged, err := r.mergedRange(ctx, dates, b.Start, b.End.Add(-time.Millisecond))
	if err != nil {
		return metrics, err
	}
	for _, summary := range merged {
		metrics.Visits += summary.LandingTotalVisits + summary.CheckoutTotalVisits
	}

	revenue, err := r.revenue.RevenueCentsBetween(ctx, b.Start, b.End)
	if err != nil {
		return metrics, unavailable("month revenue", err)
	}
	metrics.RevenueCents = revenue

	return metrics, nil
}

// mergedRange builds a per-date view of the given local days: archived
// summaries win, remaining days are aggregated live from raw events.
// A day present in both (a retention delete that has not landed yet)
// counts once, from the summary.
func (r *Reader) mergedRange(ctx context.Context, dates []string, start, end time.Time) (map[string]pageviews.DailySummary, error) {
	if len(dates) == 0 {
		return map[string]pageviews.DailySummary{}, nil
	}

	archived, err := r.store.SummariesBetween(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		r.logger.Warn("Failed to read archived summaries", slog.Any("error", err))
		return nil, unavailable("archived summaries", err)
	}

	events, err := r.store.SelectEventsBetween(ctx, start, end)
	if err != nil {
		r.logger.Warn("Failed to read live page views", slog.Any("error", err))
		return nil, unavailable("live page views", err)
	}
	live := r.aggregator.Aggregate(events)

	merged := make(map[string]pageviews.DailySummary, len(dates))
	for _, summary := range live {
		merged[summary.Date] = summary
	}
	for _, summary := range archived {
		merged[summary.Date] = summary
	}
	return merged, nil
}

// monthDates lists the local date strings of the month containing local.
func monthDates(local time.Time) []string {
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, local.Location())
	next := first.AddDate(0, 1, 0)

	var dates []string
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day.Format(localtime.DateFormat))
	}
	return dates
}

// PercentChange returns the percentage delta from previous to current,
// rounded to two decimals. A zero previous value yields 0, never an
// error or NaN.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	change := (current - previous) / previous * 100
	return math.Round(change*100) / 100
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDataUnavailable, op, err)
}
