package authz

// Functional areas grouping the permission catalog.
const (
	AreaFeed    = "feed"
	AreaHunts   = "hunts"
	AreaReports = "reports"
	AreaGenAI   = "genai"
	AreaAdmin   = "admin"
	AreaAudit   = "audit"
)

// Permission tokens. These constants are the only place permission strings
// are spelled out; every other component goes through the Registry.
const (
	PermViewFeed    Permission = "view:feed"
	PermManageFeed  Permission = "manage:feed"
	PermTriageIntel Permission = "triage:intel"
	PermExportIntel Permission = "export:intel"

	PermViewHunts   Permission = "view:hunts"
	PermManageHunts Permission = "manage:hunts"
	PermRunHunts    Permission = "run:hunts"

	PermViewReports     Permission = "view:reports"
	PermEditReports     Permission = "edit:reports"
	PermGenerateReports Permission = "generate:reports"

	PermUseGenAI       Permission = "use:genai"
	PermConfigureGenAI Permission = "configure:genai"

	PermManageUsers     Permission = "manage:users"
	PermDeleteUsers     Permission = "delete:users"
	PermManageRBAC      Permission = "manage:rbac"
	PermImpersonateRole Permission = "impersonate:role"

	// PermAdministerPlatform is a composite token for actions that would
	// otherwise need an AND of several admin permissions at the call site.
	PermAdministerPlatform Permission = "administer:platform"

	PermViewAudit Permission = "view:audit"
)

type catalogEntry struct {
	token       Permission
	area        string
	description string
}

var catalog = []catalogEntry{
	{PermViewFeed, AreaFeed, "View the threat intelligence feed"},
	{PermManageFeed, AreaFeed, "Manage feed sources and curation"},
	{PermTriageIntel, AreaFeed, "Triage intelligence items"},
	{PermExportIntel, AreaFeed, "Export intelligence items"},
	{PermViewHunts, AreaHunts, "View threat hunts"},
	{PermManageHunts, AreaHunts, "Create and edit threat hunts"},
	{PermRunHunts, AreaHunts, "Execute threat hunts"},
	{PermViewReports, AreaReports, "View reports"},
	{PermEditReports, AreaReports, "Edit report drafts"},
	{PermGenerateReports, AreaReports, "Generate report documents"},
	{PermUseGenAI, AreaGenAI, "Use the GenAI assistant"},
	{PermConfigureGenAI, AreaGenAI, "Configure GenAI providers"},
	{PermManageUsers, AreaAdmin, "Manage user accounts"},
	{PermDeleteUsers, AreaAdmin, "Delete user accounts"},
	{PermManageRBAC, AreaAdmin, "Edit role policies and overrides"},
	{PermImpersonateRole, AreaAdmin, "Evaluate permissions as another role"},
	{PermAdministerPlatform, AreaAdmin, "Full platform administration"},
	{PermViewAudit, AreaAudit, "View the audit timeline"},
}

// DefaultRegistry builds the canonical registry. A malformed or duplicate
// catalog entry is a programming error and aborts startup.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, entry := range catalog {
		if err := r.Register(entry.token, entry.area, entry.description); err != nil {
			panic(err)
		}
	}
	return r
}

// SeedDefaults returns the shipped per-role default permission sets. They
// are the initial contents of the role policy store, not a fallback: the
// store is the live source once the application runs.
func SeedDefaults() map[Role][]Permission {
	all := make([]Permission, 0, len(catalog))
	for _, entry := range catalog {
		all = append(all, entry.token)
	}
	return map[Role][]Permission{
		RoleAdmin: all,
		RoleTI: {
			PermViewFeed, PermManageFeed, PermTriageIntel, PermExportIntel,
			PermViewReports, PermEditReports, PermGenerateReports, PermUseGenAI,
		},
		RoleTH: {
			PermViewFeed, PermViewHunts, PermManageHunts, PermRunHunts,
			PermViewReports, PermEditReports, PermUseGenAI,
		},
		RoleIR: {
			PermViewFeed, PermTriageIntel, PermViewHunts,
			PermViewReports, PermEditReports, PermGenerateReports, PermUseGenAI,
		},
		RoleViewer: {PermViewFeed, PermViewHunts, PermViewReports},
	}
}

// DefaultPages returns the static page registry in navigation order.
func DefaultPages() []Page {
	return []Page{
		{Key: "dashboard", Title: "Dashboard", Required: []Permission{PermViewFeed, PermViewHunts, PermViewReports}, DefaultRoles: Roles()},
		{Key: "feed", Title: "Intel Feed", Required: []Permission{PermViewFeed}, DefaultRoles: []Role{RoleAdmin, RoleTI, RoleTH, RoleIR, RoleViewer}},
		{Key: "triage", Title: "Triage", Required: []Permission{PermTriageIntel}, DefaultRoles: []Role{RoleAdmin, RoleTI, RoleIR}},
		{Key: "hunts", Title: "Hunts", Required: []Permission{PermViewHunts}, DefaultRoles: []Role{RoleAdmin, RoleTH, RoleIR, RoleViewer}},
		{Key: "reports", Title: "Reports", Required: []Permission{PermViewReports}, DefaultRoles: Roles()},
		{Key: "genai", Title: "GenAI Assist", Required: []Permission{PermUseGenAI}, DefaultRoles: []Role{RoleAdmin, RoleTI, RoleTH, RoleIR}},
		{Key: "audit", Title: "Audit Log", Required: []Permission{PermViewAudit}, DefaultRoles: []Role{RoleAdmin}},
		{Key: "users", Title: "User Management", Required: []Permission{PermManageUsers, PermDeleteUsers}, DefaultRoles: []Role{RoleAdmin}},
		{Key: "rbac", Title: "Roles & Permissions", Required: []Permission{PermManageRBAC}, DefaultRoles: []Role{RoleAdmin}},
	}
}
