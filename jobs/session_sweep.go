package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/argus-soc/argus/internal/jobs"
)

// SessionSweeper removes expired login session records.
type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweepJob clears session rows whose expiry has passed. Live session
// state is in Redis with its own TTL; this only tidies the postgres audit
// copy.
type SessionSweepJob struct {
	sweeper SessionSweeper
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSessionSweepJob constructs the job.
func NewSessionSweepJob(sweeper SessionSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionSweepJob {
	return &SessionSweepJob{sweeper: sweeper, logger: logger, metrics: metrics}
}

// Handle processes TaskSessionSweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := j.metrics.Track(TaskSessionSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	deleted, err := j.sweeper.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return err
	}
	j.metrics.AddPruned(TaskSessionSweep, deleted)
	if j.logger != nil {
		j.logger.Info("session sweep", slog.Int64("deleted", deleted))
	}
	return nil
}
