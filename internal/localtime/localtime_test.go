package localtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursepulse/internal/localtime"
	"coursepulse/internal/testsupport"
)

// TestTimeProvider returns a controllable fixed time for stable tests.
type TestTimeProvider struct {
	CurrentTime time.Time
}

func (p *TestTimeProvider) Now() time.Time {
	return p.CurrentTime
}

func newTestCalculator(t *testing.T, clock localtime.TimeProvider) *localtime.Calculator {
	t.Helper()
	return localtime.NewCalculator(8, 5*time.Minute, testsupport.GetLogger(), clock)
}

func TestDateOfCrossesDayBoundary(t *testing.T) {
	calc := newTestCalculator(t, nil)

	// 23:30 UTC + 8h = 07:30 the next local day
	instant := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-02", calc.DateOf(instant))

	// 15:59 UTC + 8h = 23:59 the same local day
	assert.Equal(t, "2024-03-01", calc.DateOf(time.Date(2024, 3, 1, 15, 59, 0, 0, time.UTC)))
}

func TestDayBoundariesForDate(t *testing.T) {
	calc := newTestCalculator(t, nil)

	b := calc.DayBoundariesForDate("2024-03-02")

	assert.Equal(t, time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC), b.Start.UTC())
	assert.Equal(t, time.Date(2024, 3, 2, 15, 59, 59, 999_000_000, time.UTC), b.End.UTC())
}

func TestDayBoundariesFromInstantMatchDateForm(t *testing.T) {
	calc := newTestCalculator(t, nil)

	instant := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	fromInstant := calc.DayBoundaries(instant)
	fromDate := calc.DayBoundariesForDate("2024-03-02")

	assert.True(t, fromInstant.Start.Equal(fromDate.Start))
	assert.True(t, fromInstant.End.Equal(fromDate.End))
}

func TestDayBoundariesInvalidDateFallsBackToToday(t *testing.T) {
	clock := &TestTimeProvider{CurrentTime: time.Date(2024, 6, 10, 4, 0, 0, 0, time.UTC)}
	calc := newTestCalculator(t, clock)

	b := calc.DayBoundariesForDate("not-a-date")
	today := calc.DayBoundaries(clock.CurrentTime)

	assert.True(t, b.Start.Equal(today.Start), "fallback should use today's boundaries")
	assert.True(t, b.End.Equal(today.End))
}

func TestMonthBoundaries(t *testing.T) {
	calc := newTestCalculator(t, nil)

	testCases := []struct {
		name          string
		instant       time.Time
		expectedStart time.Time
		expectedEnd   time.Time
	}{
		{
			name:    "mid-month",
			instant: time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC),
			// July 1st 00:00 +08 is June 30th 16:00 UTC
			expectedStart: time.Date(2024, 6, 30, 16, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 7, 31, 16, 0, 0, 0, time.UTC),
		},
		{
			name:    "december rolls over into january of next year",
			instant: time.Date(2024, 12, 10, 12, 0, 0, 0, time.UTC),
			// Dec 1st 00:00 +08 / Jan 1st 00:00 +08 as UTC instants
			expectedStart: time.Date(2024, 11, 30, 16, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 12, 31, 16, 0, 0, 0, time.UTC),
		},
		{
			name: "instant in a different local month than UTC",
			// Jan 31st 23:00 UTC is already Feb 1st 07:00 local
			instant:       time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC),
			expectedStart: time.Date(2024, 1, 31, 16, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 2, 29, 16, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := calc.MonthBoundaries(tc.instant)
			assert.Equal(t, tc.expectedStart, b.Start.UTC())
			assert.Equal(t, tc.expectedEnd, b.End.UTC())
		})
	}
}

func TestMonthBoundariesAreHalfOpen(t *testing.T) {
	calc := newTestCalculator(t, nil)

	dec := calc.MonthBoundaries(time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC))
	jan := calc.MonthBoundaries(dec.End)

	// The December end instant belongs to January, never to both months
	assert.True(t, dec.End.Equal(jan.Start))
}

func TestPreviousMonthBoundaries(t *testing.T) {
	calc := newTestCalculator(t, nil)

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	prev := calc.PreviousMonthBoundaries(now)
	current := calc.MonthBoundaries(now)

	assert.True(t, prev.End.Equal(current.Start))
	assert.Equal(t, time.Date(2024, 11, 30, 16, 0, 0, 0, time.UTC), prev.Start.UTC())
}

func TestDateRange(t *testing.T) {
	calc := newTestCalculator(t, nil)

	from := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) // local 2024-03-10 20:00
	b := calc.DateRange(7, from)

	assert.Equal(t, calc.DayBoundariesForDate("2024-03-04").Start, b.Start)
	assert.Equal(t, calc.DayBoundariesForDate("2024-03-10").End, b.End)
}

func TestDates(t *testing.T) {
	calc := newTestCalculator(t, nil)

	from := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC) // local 2024-03-02
	dates := calc.Dates(3, from)

	require.Len(t, dates, 3)
	assert.Equal(t, []string{"2024-02-29", "2024-03-01", "2024-03-02"}, dates)
}

func TestCacheNeverChangesResults(t *testing.T) {
	clock := &TestTimeProvider{CurrentTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	calc := newTestCalculator(t, clock)

	first := calc.DayBoundariesForDate("2024-05-01")
	cached := calc.DayBoundariesForDate("2024-05-01")
	assert.Equal(t, first, cached)

	// Advance past the TTL so the entry is recomputed, not reused
	clock.CurrentTime = clock.CurrentTime.Add(6 * time.Minute)
	recomputed := calc.DayBoundariesForDate("2024-05-01")
	assert.Equal(t, first, recomputed, "recomputation must yield the identical value")
}

func TestBoundaryCacheTTL(t *testing.T) {
	clock := &TestTimeProvider{CurrentTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	cache := localtime.NewBoundaryCache(5*time.Minute, clock)

	b := localtime.Boundaries{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC),
	}
	cache.Set("day:2024-05-01", b)

	got, ok := cache.Get("day:2024-05-01")
	require.True(t, ok)
	assert.Equal(t, b, got)

	// Within the TTL the entry stays visible
	clock.CurrentTime = clock.CurrentTime.Add(4 * time.Minute)
	_, ok = cache.Get("day:2024-05-01")
	assert.True(t, ok)

	// Past the TTL it must be treated as absent
	clock.CurrentTime = clock.CurrentTime.Add(2 * time.Minute)
	_, ok = cache.Get("day:2024-05-01")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len(), "stale entry should be evicted on read")
}

func TestBoundaryCacheSweep(t *testing.T) {
	clock := &TestTimeProvider{CurrentTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	cache := localtime.NewBoundaryCache(5*time.Minute, clock)

	cache.Set("day:2024-05-01", localtime.Boundaries{})
	clock.CurrentTime = clock.CurrentTime.Add(3 * time.Minute)
	cache.Set("day:2024-05-02", localtime.Boundaries{})

	clock.CurrentTime = clock.CurrentTime.Add(3 * time.Minute)
	cache.Sweep()

	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("day:2024-05-02")
	assert.True(t, ok)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	clock := &TestTimeProvider{CurrentTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	cache := localtime.NewBoundaryCache(0, clock)

	cache.Set("day:2024-05-01", localtime.Boundaries{})
	_, ok := cache.Get("day:2024-05-01")
	assert.False(t, ok)
}
