package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder appends events to the audit_events table.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a Recorder writing through the given pool.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the event. The trail is append-only; there is no update or
// delete path outside the retention job.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if r == nil || r.pool == nil {
		return errors.New("audit: recorder not initialised")
	}
	if event.Action == "" || event.Entity == "" {
		return errors.New("audit: event requires action and entity")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_events (id, actor_id, acted_as, action, entity, entity_id, denied, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.ActorID, event.ActedAs, event.Action, event.Entity, event.EntityID, event.Denied, metaJSON, event.At)
	return err
}
