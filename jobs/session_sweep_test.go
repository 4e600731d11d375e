package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

type stubSweeper struct {
	deleted int64
	err     error
	calls   int
}

func (s *stubSweeper) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.calls++
	return s.deleted, s.err
}

func TestSessionSweepDeletesExpiredRows(t *testing.T) {
	sweeper := &stubSweeper{deleted: 3}
	job := NewSessionSweepJob(sweeper, nil, nil)

	task, err := NewSessionSweepTask()
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", sweeper.calls)
	}
}

func TestSessionSweepPropagatesError(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("connection refused")}
	job := NewSessionSweepJob(sweeper, nil, nil)
	task := asynq.NewTask(TaskSessionSweep, nil)
	if err := job.Handle(context.Background(), task); err == nil {
		t.Fatalf("expected error for retry")
	}
}
