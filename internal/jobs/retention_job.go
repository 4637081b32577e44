package jobs

import (
	"context"
	"log/slog"
	"time"

	"coursepulse/internal/retention"
)

// RetentionJob runs one archive-and-purge cycle per invocation.
type RetentionJob struct {
	cycle  *retention.Cycle
	logger *slog.Logger
}

func NewRetentionJob(cycle *retention.Cycle, logger *slog.Logger) *RetentionJob {
	return &RetentionJob{
		cycle:  cycle,
		logger: logger,
	}
}

// Run executes the retention cycle with a bounded deadline. A failed
// run is safe to retry on the next tick, the cycle converges.
func (j *RetentionJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := j.cycle.Run(ctx)
	if err != nil {
		return err
	}

	j.logger.Info("Retention cycle completed",
		slog.Int64("records_archived", result.RecordsArchived),
		slog.Int64("records_deleted", result.RecordsDeleted),
		slog.Int("summaries_updated", result.SummariesUpdated),
		slog.Time("cutoff", result.Cutoff))

	return nil
}
