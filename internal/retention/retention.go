// Package retention compacts raw page views into daily summaries and
// purges the summarized rows, bounding raw-event storage growth.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coursepulse/internal/localtime"
	"coursepulse/internal/pageviews"
)

// ErrStoreUnavailable marks a cycle aborted because the event store
// could not be read or written. The cycle never proceeds with partial
// data; retrying later is always safe.
var ErrStoreUnavailable = errors.New("event store unavailable")

// Result reports what a single retention cycle did.
type Result struct {
	RecordsArchived  int64     `json:"records_archived"`
	RecordsDeleted   int64     `json:"records_deleted"`
	SummariesUpdated int       `json:"summaries_updated"`
	Cutoff           time.Time `json:"cutoff"`
}

// Stats is the pre-cleanup preview surfaced to the admin trigger.
type Stats struct {
	CurrentRecordCount int64  `json:"current_record_count"`
	OldestRecordDate   string `json:"oldest_record_date"`
	CanCleanup         bool   `json:"can_cleanup"`
	RecordsToCleanup   int64  `json:"records_to_cleanup"`
}

// Cycle runs the archive-then-purge sequence: select raw events older
// than the retention window, aggregate them into daily summaries,
// durably upsert the summaries, and only then delete the raw rows.
type Cycle struct {
	store      pageviews.Store
	aggregator *pageviews.Aggregator
	calc       *localtime.Calculator
	logger     *slog.Logger
	window     time.Duration
	clock      localtime.TimeProvider
}

func NewCycle(
	store pageviews.Store,
	aggregator *pageviews.Aggregator,
	calc *localtime.Calculator,
	logger *slog.Logger,
	window time.Duration,
	clock ...localtime.TimeProvider,
) *Cycle {
	var provider localtime.TimeProvider = &localtime.DefaultTimeProvider{}
	if len(clock) > 0 && clock[0] != nil {
		provider = clock[0]
	}
	return &Cycle{
		store:      store,
		aggregator: aggregator,
		calc:       calc,
		logger:     logger,
		window:     window,
		clock:      provider,
	}
}

// Cutoff returns the purge threshold for the current instant, aligned
// down to a local day boundary so summaries always cover whole days.
// Run and Stats share this computation; they must never diverge.
func (c *Cycle) Cutoff() time.Time {
	horizon := c.clock.Now().Add(-c.window)
	return c.calc.DayBoundaries(horizon).Start
}

// Run executes one retention cycle. The cutoff is captured once and
// used for both the select and the delete; "now" is never recomputed
// in between. An empty selection is success with zero counts.
func (c *Cycle) Run(ctx context.Context) (Result, error) {
	cutoff := c.Cutoff()
	result := Result{Cutoff: cutoff}

	c.logger.Info("Starting retention cycle",
		slog.Time("cutoff", cutoff),
		slog.Duration("window", c.window))

	events, err := c.store.SelectEventsBefore(ctx, cutoff)
	if err != nil {
		c.logger.Error("Retention cycle failed selecting events", slog.Any("error", err))
		return result, fmt.Errorf("%w: selecting events: %v", ErrStoreUnavailable, err)
	}

	if len(events) == 0 {
		c.logger.Info("No raw events older than cutoff, nothing to clean up")
		return result, nil
	}

	summaries := c.aggregator.Aggregate(events)

	c.logReRun(ctx, summaries)

	var upsertedAt time.Time
	if err := c.store.UpsertDailySummaries(ctx, summaries); err != nil {
		c.logger.Error("Retention cycle failed upserting summaries, raw events untouched",
			slog.Any("error", err))
		return result, fmt.Errorf("%w: upserting summaries: %v", ErrStoreUnavailable, err)
	}
	upsertedAt = c.clock.Now()

	// A deadline landing here must leave the cycle retriable: summaries
	// are durable, raw rows remain, and the next run converges.
	if err := ctx.Err(); err != nil {
		c.logger.Warn("Retention cycle cancelled after upsert, raw events retained for re-run",
			slog.Any("error", err))
		return result, fmt.Errorf("retention cycle cancelled before delete: %w", err)
	}

	deleted, err := c.deleteSummarized(ctx, cutoff, upsertedAt)
	if err != nil {
		return result, err
	}

	result.RecordsArchived = int64(len(events))
	result.RecordsDeleted = deleted
	result.SummariesUpdated = len(summaries)

	c.logger.Info("Retention cycle completed",
		slog.Int64("records_archived", result.RecordsArchived),
		slog.Int64("records_deleted", result.RecordsDeleted),
		slog.Int("summaries_updated", result.SummariesUpdated),
		slog.Time("cutoff", cutoff))

	return result, nil
}

// deleteSummarized purges raw events older than cutoff. The delete
// must never run without a prior durable upsert of the same window;
// upsertedAt is the proof. A zero value implies silent data loss and
// is reported at the highest severity instead of being auto-recovered.
func (c *Cycle) deleteSummarized(ctx context.Context, cutoff, upsertedAt time.Time) (int64, error) {
	if upsertedAt.IsZero() {
		c.logger.Error("CRITICAL: raw event delete requested without a prior summary upsert, aborting",
			slog.Time("cutoff", cutoff))
		return 0, errors.New("retention ordering violation: delete without upsert")
	}

	deleted, err := c.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		c.logger.Warn("Retention cycle failed deleting raw events; summaries are durable and a re-run converges",
			slog.Any("error", err))
		return 0, fmt.Errorf("%w: deleting events: %v", ErrStoreUnavailable, err)
	}
	return deleted, nil
}

// logReRun notes when the cycle covers days that already have
// summaries. That is the expected recovery path after a failed delete,
// informational rather than an error.
func (c *Cycle) logReRun(ctx context.Context, summaries []pageviews.DailySummary) {
	if len(summaries) == 0 {
		return
	}
	existing, err := c.store.SummariesBetween(ctx, summaries[0].Date, summaries[len(summaries)-1].Date)
	if err != nil || len(existing) == 0 {
		return
	}
	c.logger.Info("Re-running aggregation over previously summarized days",
		slog.Int("existing_summaries", len(existing)))
}

// Stats previews what Run would do, using the identical cutoff logic.
func (c *Cycle) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	count, err := c.store.CountEvents(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: counting events: %v", ErrStoreUnavailable, err)
	}
	stats.CurrentRecordCount = count

	oldest, err := c.store.OldestEventTimestamp(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: finding oldest event: %v", ErrStoreUnavailable, err)
	}
	if oldest != nil {
		stats.OldestRecordDate = c.calc.DateOf(*oldest)
	}

	toCleanup, err := c.store.CountEventsBefore(ctx, c.Cutoff())
	if err != nil {
		return stats, fmt.Errorf("%w: counting events before cutoff: %v", ErrStoreUnavailable, err)
	}
	stats.RecordsToCleanup = toCleanup
	stats.CanCleanup = toCleanup > 0

	return stats, nil
}
