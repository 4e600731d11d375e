package authz

import (
	"fmt"
	"regexp"
)

var tokenPattern = regexp.MustCompile(`^[a-z]+:[a-z]+$`)

// Registry is the canonical catalog of permission tokens. It is built once
// at process startup and read-only afterwards, so lookups need no locking.
// No other component may define permission strings independently.
type Registry struct {
	perms map[Permission]PermissionInfo
	order []Permission
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{perms: make(map[Permission]PermissionInfo)}
}

// Register adds a permission to the catalog. It fails on malformed tokens
// and on duplicates.
func (r *Registry) Register(token Permission, area, description string) error {
	if !tokenPattern.MatchString(string(token)) {
		return fmt.Errorf("%w: malformed permission token %q", ErrValidation, token)
	}
	if _, exists := r.perms[token]; exists {
		return fmt.Errorf("%w: permission %q already registered", ErrValidation, token)
	}
	r.perms[token] = PermissionInfo{Token: token, Area: area, Description: description}
	r.order = append(r.order, token)
	return nil
}

// Validate reports whether the token is part of the catalog.
func (r *Registry) Validate(token Permission) bool {
	_, ok := r.perms[token]
	return ok
}

// Info returns the registration record for a token.
func (r *Registry) Info(token Permission) (PermissionInfo, bool) {
	info, ok := r.perms[token]
	return info, ok
}

// ListAll returns every registered permission in registration order.
func (r *Registry) ListAll() []PermissionInfo {
	out := make([]PermissionInfo, 0, len(r.order))
	for _, token := range r.order {
		out = append(out, r.perms[token])
	}
	return out
}

// ListByArea returns the permissions of one functional area in registration
// order.
func (r *Registry) ListByArea(area string) []PermissionInfo {
	var out []PermissionInfo
	for _, token := range r.order {
		if info := r.perms[token]; info.Area == area {
			out = append(out, info)
		}
	}
	return out
}
