package authz

import (
	"fmt"
	"strings"
	"time"
)

// Permission is an atomic capability token in "verb:noun" form.
type Permission string

// PermissionInfo describes a registered permission.
type PermissionInfo struct {
	Token       Permission
	Area        string
	Description string
}

// Role is the closed set of actor roles. Extending it is a code change,
// never data.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleTI     Role = "TI"
	RoleTH     Role = "TH"
	RoleIR     Role = "IR"
	RoleViewer Role = "VIEWER"

	// RoleNone is the zero value used where no role applies.
	RoleNone Role = ""
)

// Roles returns every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleTI, RoleTH, RoleIR, RoleViewer}
}

// ParseRole converts a raw string into a Role. Unknown values are rejected
// so arbitrary role strings never survive session or request deserialization.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RoleTI, RoleTH, RoleIR, RoleViewer:
		return role, nil
	}
	return RoleNone, fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
}

// Actor identifies the authenticated subject of a request. Role is the
// actor's stored role, independent of any active impersonation.
type Actor struct {
	UserID int64
	Role   Role
}

// UserOverride is a per-user grant or revoke beyond role defaults. At most
// one live record exists per (user, permission); a new write replaces it.
type UserOverride struct {
	UserID     int64
	Permission Permission
	Granted    bool
	Reason     string
	CreatedBy  int64
	CreatedAt  time.Time
}

// Page is a navigable dashboard unit. It is visible when the effective set
// contains any of the required permissions.
type Page struct {
	Key          string
	Title        string
	Required     []Permission
	DefaultRoles []Role
}
