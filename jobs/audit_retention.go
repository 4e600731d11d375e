package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/argus-soc/argus/internal/jobs"
)

// AuditPruner deletes audit events older than a cutoff.
type AuditPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionJob prunes the audit trail down to the retention window.
// This is the only delete path into the otherwise append-only trail.
type AuditRetentionJob struct {
	pruner  AuditPruner
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	defRetn time.Duration
}

// NewAuditRetentionJob constructs the job. defaultRetention applies when a
// task carries no explicit window.
func NewAuditRetentionJob(pruner AuditPruner, logger *slog.Logger, metrics *jobmetrics.Metrics, defaultRetention time.Duration) *AuditRetentionJob {
	return &AuditRetentionJob{pruner: pruner, logger: logger, metrics: metrics, defRetn: defaultRetention}
}

// Handle processes TaskAuditRetention tasks.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := j.metrics.Track(TaskAuditRetention)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	var payload AuditRetentionPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.defRetn
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}
	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := j.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	j.metrics.AddPruned(TaskAuditRetention, deleted)
	if j.logger != nil {
		j.logger.Info("audit retention sweep",
			slog.Time("cutoff", cutoff),
			slog.Int64("deleted", deleted))
	}
	return nil
}
