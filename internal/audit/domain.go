package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single audit record. ActedAs carries the impersonated role when
// the action happened under impersonation, so "who did what as whom" stays
// reconstructible.
type Event struct {
	ID       uuid.UUID
	ActorID  int64
	ActedAs  string
	Action   string
	Entity   string
	EntityID string
	Denied   bool
	Meta     map[string]any
	At       time.Time
}

// Action names emitted by the authorization core.
const (
	ActionPolicyUpdate       = "authz.role_policy.update"
	ActionOverrideSet        = "authz.override.set"
	ActionOverrideRemove     = "authz.override.remove"
	ActionImpersonationStart = "authz.impersonation.start"
	ActionImpersonationEnd   = "authz.impersonation.restore"
	ActionDenied             = "authz.denied"
	ActionLogin              = "auth.login"
	ActionLogout             = "auth.logout"
)

// TimelineRow is one event as presented by the timeline API.
type TimelineRow struct {
	ID       uuid.UUID      `json:"id"`
	At       time.Time      `json:"at"`
	ActorID  int64          `json:"actor_id"`
	ActedAs  string         `json:"acted_as,omitempty"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Denied   bool           `json:"denied"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// TimelineFilters narrows the timeline query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Action   string
	Entity   string
	Denied   *bool
	Page     int
	PageSize int
}

// PagingInfo describes the returned window.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}
