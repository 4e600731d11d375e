package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention prunes audit events past the retention window.
	TaskAuditRetention = "audit:retention"
	// TaskSessionSweep removes expired login session records.
	TaskSessionSweep = "session:sweep"
)

// AuditRetentionPayload configures one retention run.
type AuditRetentionPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditRetentionTask constructs an audit retention task.
func NewAuditRetentionTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditRetentionPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// NewSessionSweepTask constructs a session sweep task.
func NewSessionSweepTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionSweep, nil), nil
}
