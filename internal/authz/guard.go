package authz

import (
	"context"
	"log/slog"

	"github.com/argus-soc/argus/internal/audit"
)

// Recorder is the audit-log sink consumed by the authorization core.
type Recorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Guard is the single enforcement point for sensitive actions. Every
// protected operation declares exactly one permission; composite
// requirements are registered as composite tokens, never expressed as
// AND/OR logic at call sites.
type Guard struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(recorder Recorder, logger *slog.Logger) *Guard {
	return &Guard{recorder: recorder, logger: logger}
}

// Require returns nil when the effective set grants the permission and
// ErrForbidden otherwise. The error is uniform: a caller cannot tell an
// unregistered token from an ungranted one. Every denial emits exactly one
// audit event.
func (g *Guard) Require(ctx context.Context, actor Actor, set EffectiveSet, permission Permission) error {
	if set.Has(permission) {
		return nil
	}
	g.audit(ctx, actor, set, permission, nil)
	return ErrForbidden
}

// Unavailable records a fail-closed denial caused by a resolution failure
// and returns ErrUnavailable. Resolution errors are never interpreted as
// allow.
func (g *Guard) Unavailable(ctx context.Context, actor Actor, permission Permission) error {
	g.audit(ctx, actor, EffectiveSet{}, permission, map[string]any{"reason": "authorization unavailable"})
	return ErrUnavailable
}

func (g *Guard) audit(ctx context.Context, actor Actor, set EffectiveSet, permission Permission, meta map[string]any) {
	event := audit.Event{
		ActorID:  actor.UserID,
		Action:   audit.ActionDenied,
		Entity:   "permission",
		EntityID: string(permission),
		Denied:   true,
		Meta:     meta,
	}
	if set.Impersonated() {
		event.ActedAs = string(set.BaseRole())
	}
	if err := g.recorder.Record(ctx, event); err != nil && g.logger != nil {
		g.logger.Error("record denial", slog.Any("error", err))
	}
}
