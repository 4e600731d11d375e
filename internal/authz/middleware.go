package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/argus-soc/argus/internal/platform/httpx"
	"github.com/argus-soc/argus/internal/shared"
)

// ActorLoader resolves a session user ID into an Actor with a validated
// role. Implemented by the users package.
type ActorLoader interface {
	Actor(ctx context.Context, userID int64) (Actor, error)
}

// DecisionObserver receives the outcome of every guard decision. Implemented
// by the observability package; nil disables observation.
type DecisionObserver interface {
	ObserveDecision(permission string, allowed bool)
}

// Middleware wires session loading, resolution and the Guard into chi
// routes. Every protected route declares exactly one permission.
type Middleware struct {
	Service  *Service
	Guard    *Guard
	Actors   ActorLoader
	Logger   *slog.Logger
	Observer DecisionObserver
}

// Require resolves the caller's effective set and enforces the permission.
// On success the actor and set are stored in the request context for the
// handler. Denials are uniform 403s without taxonomy detail; resolution
// failures deny with 503, never allow.
func (m Middleware) Require(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, set, ok := m.resolve(w, r, permission)
			if !ok {
				return
			}
			if err := m.Guard.Require(r.Context(), actor, set, permission); err != nil {
				m.observe(permission, false)
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			m.observe(permission, true)
			ctx := ContextWithActor(r.Context(), actor)
			ctx = ContextWithEffectiveSet(ctx, set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithResolution resolves the caller's effective set without enforcing a
// permission, for endpoints that present the set itself.
func (m Middleware) WithResolution(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, set, ok := m.resolve(w, r, "")
		if !ok {
			return
		}
		ctx := ContextWithActor(r.Context(), actor)
		ctx = ContextWithEffectiveSet(ctx, set)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) resolve(w http.ResponseWriter, r *http.Request, permission Permission) (Actor, EffectiveSet, bool) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := currentUserID(sess)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return Actor{}, EffectiveSet{}, false
	}
	actor, err := m.Actors.Actor(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("load actor", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return Actor{}, EffectiveSet{}, false
	}
	set, err := m.Service.Resolve(r.Context(), actor, ActiveImpersonation(sess))
	if err != nil {
		_ = m.Guard.Unavailable(r.Context(), actor, permission)
		m.observe(permission, false)
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
		return Actor{}, EffectiveSet{}, false
	}
	return actor, set, true
}

func (m Middleware) observe(permission Permission, allowed bool) {
	if m.Observer != nil && permission != "" {
		m.Observer.ObserveDecision(string(permission), allowed)
	}
}

func currentUserID(sess *shared.Session) (int64, bool) {
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
