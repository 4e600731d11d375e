package authz

import (
	"context"
	"log/slog"

	"github.com/argus-soc/argus/internal/audit"
	"github.com/argus-soc/argus/internal/shared"
)

// ImpersonationSessionKey stores the impersonated role inside the session.
// The flag lives only in the authenticated session: it is never persisted
// server-side beyond the session TTL and never visible to other sessions.
const ImpersonationSessionKey = "impersonate_role"

// Impersonator moves a session between the Normal and Impersonating states.
type Impersonator struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewImpersonator constructs an Impersonator.
func NewImpersonator(recorder Recorder, logger *slog.Logger) *Impersonator {
	return &Impersonator{recorder: recorder, logger: logger}
}

// Start marks the session as impersonating target. Only an actor whose
// stored role is ADMIN may impersonate; the target must be a valid role.
func (i *Impersonator) Start(ctx context.Context, sess *shared.Session, actor Actor, target Role) error {
	if actor.Role != RoleAdmin {
		i.record(ctx, audit.Event{
			ActorID:  actor.UserID,
			Action:   audit.ActionDenied,
			Entity:   "impersonation",
			EntityID: string(target),
			Denied:   true,
		})
		return ErrForbidden
	}
	parsed, err := ParseRole(string(target))
	if err != nil {
		return err
	}
	sess.Set(ImpersonationSessionKey, string(parsed))
	i.record(ctx, audit.Event{
		ActorID:  actor.UserID,
		ActedAs:  string(parsed),
		Action:   audit.ActionImpersonationStart,
		Entity:   "role",
		EntityID: string(parsed),
	})
	return nil
}

// Restore returns the session to the Normal state. Calling it while not
// impersonating is a no-op, not an error.
func (i *Impersonator) Restore(ctx context.Context, sess *shared.Session, actor Actor) error {
	active := ActiveImpersonation(sess)
	if active == RoleNone {
		return nil
	}
	sess.Delete(ImpersonationSessionKey)
	i.record(ctx, audit.Event{
		ActorID:  actor.UserID,
		ActedAs:  string(active),
		Action:   audit.ActionImpersonationEnd,
		Entity:   "role",
		EntityID: string(active),
	})
	return nil
}

// ActiveImpersonation returns the impersonated role stored in the session,
// or RoleNone. A stored value that no longer parses as a role is treated as
// no impersonation.
func ActiveImpersonation(sess *shared.Session) Role {
	if sess == nil {
		return RoleNone
	}
	raw := sess.Get(ImpersonationSessionKey)
	if raw == "" {
		return RoleNone
	}
	role, err := ParseRole(raw)
	if err != nil {
		return RoleNone
	}
	return role
}

func (i *Impersonator) record(ctx context.Context, event audit.Event) {
	if err := i.recorder.Record(ctx, event); err != nil && i.logger != nil {
		i.logger.Error("record impersonation event", slog.Any("error", err))
	}
}
