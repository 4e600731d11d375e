package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/argus-soc/argus/internal/audit"
)

// PolicyRepository persists per-role default permission sets.
type PolicyRepository interface {
	GetDefaults(ctx context.Context, role Role) ([]Permission, error)
	SetDefaults(ctx context.Context, role Role, permissions []Permission) error
}

// OverrideRepository persists per-user permission overrides.
type OverrideRepository interface {
	Upsert(ctx context.Context, override UserOverride) error
	Delete(ctx context.Context, userID int64, permission Permission) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]UserOverride, error)
}

// UserDirectory answers whether a user exists. Implemented by the users
// package; kept as an interface so the core stays free of user storage.
type UserDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Service orchestrates the permission stores and the resolver. All
// mutations validate against the Registry before touching state; on any
// invalid entry the whole mutation is rejected.
type Service struct {
	registry  *Registry
	resolver  *Resolver
	policies  PolicyRepository
	overrides OverrideRepository
	users     UserDirectory
	recorder  Recorder
	logger    *slog.Logger
}

// NewService constructs the authorization service.
func NewService(registry *Registry, policies PolicyRepository, overrides OverrideRepository, users UserDirectory, recorder Recorder, logger *slog.Logger) *Service {
	return &Service{
		registry:  registry,
		resolver:  NewResolver(registry),
		policies:  policies,
		overrides: overrides,
		users:     users,
		recorder:  recorder,
		logger:    logger,
	}
}

// Registry exposes the canonical permission catalog.
func (s *Service) Registry() *Registry { return s.registry }

// GetDefaults returns the stored default permissions for a role, sorted by
// token for stable display.
func (s *Service) GetDefaults(ctx context.Context, role Role) ([]Permission, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	perms, err := s.policies.GetDefaults(ctx, role)
	if err != nil {
		return nil, err
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms, nil
}

// UpdateDefaults replaces a role's default permission set. The write is
// all-or-nothing: one unregistered token rejects the entire update and the
// stored policy is untouched.
func (s *Service) UpdateDefaults(ctx context.Context, actor Actor, role Role, permissions []Permission) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	var invalid []Permission
	seen := make(map[Permission]struct{}, len(permissions))
	deduped := make([]Permission, 0, len(permissions))
	for _, p := range permissions {
		if !s.registry.Validate(p) {
			invalid = append(invalid, p)
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		deduped = append(deduped, p)
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: unregistered permissions %v", ErrValidation, invalid)
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i] < deduped[j] })
	if err := s.policies.SetDefaults(ctx, role, deduped); err != nil {
		return err
	}
	s.record(ctx, audit.Event{
		ActorID:  actor.UserID,
		ActedAs:  actedAs(ctx),
		Action:   audit.ActionPolicyUpdate,
		Entity:   "role_policy",
		EntityID: string(role),
		Meta:     map[string]any{"permissions": deduped},
	})
	return nil
}

// SetOverride upserts the unique (user, permission) override record.
func (s *Service) SetOverride(ctx context.Context, actor Actor, userID int64, permission Permission, granted bool, reason string) (UserOverride, error) {
	if !s.registry.Validate(permission) {
		return UserOverride{}, fmt.Errorf("%w: unregistered permission %q", ErrValidation, permission)
	}
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return UserOverride{}, err
	}
	if !exists {
		return UserOverride{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	override := UserOverride{
		UserID:     userID,
		Permission: permission,
		Granted:    granted,
		Reason:     reason,
		CreatedBy:  actor.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.overrides.Upsert(ctx, override); err != nil {
		return UserOverride{}, err
	}
	s.record(ctx, audit.Event{
		ActorID:  actor.UserID,
		ActedAs:  actedAs(ctx),
		Action:   audit.ActionOverrideSet,
		Entity:   "user_override",
		EntityID: fmt.Sprintf("%d/%s", userID, permission),
		Meta:     map[string]any{"granted": granted, "reason": reason},
	})
	return override, nil
}

// RemoveOverride deletes the (user, permission) record. Removing an absent
// override is a no-op, not an error; only actual removals are audited.
func (s *Service) RemoveOverride(ctx context.Context, actor Actor, userID int64, permission Permission) error {
	if !s.registry.Validate(permission) {
		return fmt.Errorf("%w: unregistered permission %q", ErrValidation, permission)
	}
	deleted, err := s.overrides.Delete(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	s.record(ctx, audit.Event{
		ActorID:  actor.UserID,
		ActedAs:  actedAs(ctx),
		Action:   audit.ActionOverrideRemove,
		Entity:   "user_override",
		EntityID: fmt.Sprintf("%d/%s", userID, permission),
	})
	return nil
}

// ListOverrides returns a user's live overrides ordered by permission name.
func (s *Service) ListOverrides(ctx context.Context, userID int64) ([]UserOverride, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return s.overrides.ListForUser(ctx, userID)
}

// Resolve fetches the current policy and override state and computes the
// actor's effective permission set. There is no cross-request cache: every
// request observes the stores as of this call. Any storage failure yields
// ErrUnavailable and an empty set; resolution never fails open.
func (s *Service) Resolve(ctx context.Context, actor Actor, impersonating Role) (EffectiveSet, error) {
	defaults := make(map[Role][]Permission, 2)
	var overrides []UserOverride

	g, gctx := errgroup.WithContext(ctx)
	roles := []Role{actor.Role}
	if impersonating != RoleNone && actor.Role == RoleAdmin && impersonating != actor.Role {
		roles = append(roles, impersonating)
	}
	results := make([][]Permission, len(roles))
	for idx, role := range roles {
		idx, role := idx, role
		g.Go(func() error {
			perms, err := s.policies.GetDefaults(gctx, role)
			if err != nil {
				return err
			}
			results[idx] = perms
			return nil
		})
	}
	g.Go(func() error {
		var err error
		overrides, err = s.overrides.ListForUser(gctx, actor.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return EffectiveSet{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for idx, role := range roles {
		defaults[role] = results[idx]
	}

	return s.resolver.Compute(ComputeInput{
		UserID:        actor.UserID,
		ActualRole:    actor.Role,
		Impersonating: impersonating,
		Defaults:      defaults,
		Overrides:     overrides,
	}), nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if err := s.recorder.Record(ctx, event); err != nil && s.logger != nil {
		s.logger.Error("record authz event", slog.Any("error", err))
	}
}

func actedAs(ctx context.Context) string {
	set, ok := EffectiveSetFromContext(ctx)
	if !ok || !set.Impersonated() {
		return ""
	}
	return string(set.BaseRole())
}
