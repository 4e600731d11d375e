package authz

import "errors"

var (
	// ErrValidation indicates an unknown permission, role or page referenced
	// in a mutation. The mutation is rejected before any state change.
	ErrValidation = errors.New("authz: validation failed")
	// ErrForbidden indicates the actor lacks the required permission. It is
	// surfaced uniformly and never distinguishes "unknown permission" from
	// "permission not granted".
	ErrForbidden = errors.New("authz: forbidden")
	// ErrNotFound indicates a lookup miss on a role, page or user.
	ErrNotFound = errors.New("authz: not found")
	// ErrUnavailable indicates backing storage was unreachable during
	// resolution. Callers must treat it as zero permissions, never as allow.
	ErrUnavailable = errors.New("authz: authorization unavailable")
)
