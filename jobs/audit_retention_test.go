package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

type stubPruner struct {
	cutoff  time.Time
	deleted int64
	err     error
	calls   int
}

func (s *stubPruner) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.deleted, s.err
}

func TestAuditRetentionUsesPayloadWindow(t *testing.T) {
	pruner := &stubPruner{deleted: 42}
	job := NewAuditRetentionJob(pruner, nil, nil, 90*24*time.Hour)

	task, err := NewAuditRetentionTask(24 * time.Hour)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if pruner.calls != 1 {
		t.Fatalf("expected one prune call, got %d", pruner.calls)
	}
	want := time.Now().UTC().Add(-24 * time.Hour)
	if diff := pruner.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff %v not near %v", pruner.cutoff, want)
	}
}

func TestAuditRetentionFallsBackToDefault(t *testing.T) {
	pruner := &stubPruner{}
	job := NewAuditRetentionJob(pruner, nil, nil, 48*time.Hour)

	task := asynq.NewTask(TaskAuditRetention, nil)
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := time.Now().UTC().Add(-48 * time.Hour)
	if diff := pruner.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff %v not near %v", pruner.cutoff, want)
	}
}

func TestAuditRetentionSkipsRetryOnBadPayload(t *testing.T) {
	pruner := &stubPruner{}
	job := NewAuditRetentionJob(pruner, nil, nil, time.Hour)

	task := asynq.NewTask(TaskAuditRetention, []byte("{not json"))
	if err := job.Handle(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if pruner.calls != 0 {
		t.Fatalf("bad payload must not prune")
	}
}

func TestAuditRetentionSkipsRetryWithoutWindow(t *testing.T) {
	job := NewAuditRetentionJob(&stubPruner{}, nil, nil, 0)
	task := asynq.NewTask(TaskAuditRetention, nil)
	if err := job.Handle(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestAuditRetentionPropagatesStorageError(t *testing.T) {
	pruner := &stubPruner{err: errors.New("connection refused")}
	job := NewAuditRetentionJob(pruner, nil, nil, time.Hour)
	task := asynq.NewTask(TaskAuditRetention, nil)
	if err := job.Handle(context.Background(), task); err == nil {
		t.Fatalf("expected error for retry")
	}
}
