package auth

import (
	"time"

	"github.com/argus-soc/argus/internal/authz"
)

// User represents an authenticated analyst account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
