package authz

import "sort"

// Source records where an effective permission came from.
type Source string

const (
	SourceRoleDefault Source = "role-default"
	SourceOverride    Source = "override"
)

// EffectiveSet is the resolved permission set for one request context. It is
// a computed value and is never persisted.
type EffectiveSet struct {
	registry     *Registry
	perms        map[Permission]Source
	baseRole     Role
	impersonated bool
}

// Has reports whether the permission is granted. Tokens outside the registry
// always return false.
func (s EffectiveSet) Has(p Permission) bool {
	if s.registry == nil || !s.registry.Validate(p) {
		return false
	}
	_, ok := s.perms[p]
	return ok
}

// Permissions returns the granted tokens sorted by name.
func (s EffectiveSet) Permissions() []Permission {
	out := make([]Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Provenance returns a copy of the per-permission source map.
func (s EffectiveSet) Provenance() map[Permission]Source {
	out := make(map[Permission]Source, len(s.perms))
	for p, src := range s.perms {
		out[p] = src
	}
	return out
}

// BaseRole returns the role whose defaults seeded the set. Under
// impersonation this is the impersonated role, not the actor's own.
func (s EffectiveSet) BaseRole() Role { return s.baseRole }

// Impersonated reports whether the set was resolved under impersonation.
func (s EffectiveSet) Impersonated() bool { return s.impersonated }

// ComputeInput carries everything Compute needs. Defaults must contain the
// role defaults for the actor's actual role and, when impersonating, for the
// target role; the resolver performs no I/O of its own.
type ComputeInput struct {
	UserID        int64
	ActualRole    Role
	Impersonating Role
	Defaults      map[Role][]Permission
	Overrides     []UserOverride
}

// Resolver merges role defaults with per-user overrides into an effective
// permission set. It is pure: deterministic, no side effects, and runs in
// O(|defaults| + |overrides|).
type Resolver struct {
	registry *Registry
}

// NewResolver constructs a Resolver over the canonical registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Compute resolves the final permission set. An impersonation request is
// honored only when the actor's actual role is ADMIN; the impersonation
// context enforces this too, but the resolver does not rely on it.
// Overrides are keyed to the real user and apply regardless of
// impersonation. Tokens outside the registry are dropped, never granted.
func (r *Resolver) Compute(in ComputeInput) EffectiveSet {
	baseRole := in.ActualRole
	impersonated := false
	if in.Impersonating != RoleNone && in.ActualRole == RoleAdmin {
		baseRole = in.Impersonating
		impersonated = true
	}

	perms := make(map[Permission]Source)
	for _, p := range in.Defaults[baseRole] {
		if r.registry.Validate(p) {
			perms[p] = SourceRoleDefault
		}
	}
	for _, ov := range in.Overrides {
		if ov.UserID != in.UserID || !r.registry.Validate(ov.Permission) {
			continue
		}
		if ov.Granted {
			perms[ov.Permission] = SourceOverride
		} else {
			delete(perms, ov.Permission)
		}
	}

	return EffectiveSet{
		registry:     r.registry,
		perms:        perms,
		baseRole:     baseRole,
		impersonated: impersonated,
	}
}
