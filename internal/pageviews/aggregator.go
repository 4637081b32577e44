package pageviews

import (
	"math"
	"sort"

	"coursepulse/internal/localtime"
)

// Aggregator groups raw page views into per-local-day daily summaries.
// Aggregation is deterministic: the same input always produces the
// same output, which is what makes the retention cycle re-runnable.
type Aggregator struct {
	calc         *localtime.Calculator
	landingPath  string
	checkoutPath string
}

func NewAggregator(calc *localtime.Calculator, landingPath, checkoutPath string) *Aggregator {
	return &Aggregator{
		calc:         calc,
		landingPath:  landingPath,
		checkoutPath: checkoutPath,
	}
}

type dayAccumulator struct {
	landingTotal     int
	checkoutTotal    int
	landingVisitors  map[string]struct{}
	checkoutVisitors map[string]struct{}
}

// Aggregate rolls a batch of raw events up into one DailySummary per
// local calendar day, sorted by date. Events on untracked paths are
// skipped; upstream validation should prevent them, but a stray row
// must not fail the batch.
func (a *Aggregator) Aggregate(events []PageView) []DailySummary {
	days := make(map[string]*dayAccumulator)

	for _, event := range events {
		if event.PagePath != a.landingPath && event.PagePath != a.checkoutPath {
			continue
		}

		date := a.calc.DateOf(event.CreatedAt)
		acc, ok := days[date]
		if !ok {
			acc = &dayAccumulator{
				landingVisitors:  make(map[string]struct{}),
				checkoutVisitors: make(map[string]struct{}),
			}
			days[date] = acc
		}

		if event.PagePath == a.landingPath {
			acc.landingTotal++
			acc.landingVisitors[event.VisitorID] = struct{}{}
		} else {
			acc.checkoutTotal++
			acc.checkoutVisitors[event.VisitorID] = struct{}{}
		}
	}

	summaries := make([]DailySummary, 0, len(days))
	for date, acc := range days {
		landingUnique := len(acc.landingVisitors)
		checkoutUnique := len(acc.checkoutVisitors)
		summaries = append(summaries, DailySummary{
			Date:                   date,
			LandingTotalVisits:     acc.landingTotal,
			LandingUniqueVisitors:  landingUnique,
			CheckoutTotalVisits:    acc.checkoutTotal,
			CheckoutUniqueVisitors: checkoutUnique,
			ConversionRate:         ConversionRate(checkoutUnique, landingUnique),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date < summaries[j].Date
	})

	return summaries
}

// ConversionRate returns checkout unique visitors as a percentage of
// landing unique visitors, rounded to two decimals. A zero denominator
// yields 0 rather than an error.
func ConversionRate(checkoutUnique, landingUnique int) float64 {
	if landingUnique == 0 {
		return 0
	}
	rate := float64(checkoutUnique) / float64(landingUnique) * 100
	return math.Round(rate*100) / 100
}
