package authz

import "testing"

func resolveInput(userID int64, role Role) ComputeInput {
	return ComputeInput{
		UserID:     userID,
		ActualRole: role,
		Defaults:   SeedDefaults(),
	}
}

func TestComputeRoleDefaultsOnly(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())
	set := resolver.Compute(resolveInput(7, RoleViewer))

	if !set.Has(PermViewFeed) || !set.Has(PermViewHunts) || !set.Has(PermViewReports) {
		t.Fatalf("viewer defaults missing: %v", set.Permissions())
	}
	if set.Has(PermManageFeed) || set.Has(PermManageRBAC) {
		t.Fatalf("viewer granted more than defaults: %v", set.Permissions())
	}
	if set.BaseRole() != RoleViewer || set.Impersonated() {
		t.Fatalf("unexpected base role %s impersonated=%v", set.BaseRole(), set.Impersonated())
	}
}

func TestComputeGrantOverrideExtendsDefaults(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())
	in := resolveInput(7, RoleViewer)
	in.Overrides = []UserOverride{{UserID: 7, Permission: PermExportIntel, Granted: true}}

	set := resolver.Compute(in)
	if !set.Has(PermExportIntel) {
		t.Fatalf("expected override grant to apply")
	}
	src := set.Provenance()
	if src[PermExportIntel] != SourceOverride {
		t.Fatalf("expected override provenance, got %s", src[PermExportIntel])
	}
	if src[PermViewFeed] != SourceRoleDefault {
		t.Fatalf("expected role-default provenance, got %s", src[PermViewFeed])
	}
}

func TestComputeRevokeOverrideRemovesDefault(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())
	in := resolveInput(7, RoleTI)
	in.Overrides = []UserOverride{{UserID: 7, Permission: PermManageFeed, Granted: false}}

	set := resolver.Compute(in)
	if set.Has(PermManageFeed) {
		t.Fatalf("expected revoke override to remove default grant")
	}
	if !set.Has(PermViewFeed) {
		t.Fatalf("unrelated defaults must survive a revoke")
	}
}

func TestComputeIgnoresForeignOverrides(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())
	in := resolveInput(7, RoleViewer)
	in.Overrides = []UserOverride{{UserID: 8, Permission: PermExportIntel, Granted: true}}

	if set := resolver.Compute(in); set.Has(PermExportIntel) {
		t.Fatalf("override for another user must not apply")
	}
}

func TestComputeDropsUnregisteredTokens(t *testing.T) {
	registry := DefaultRegistry()
	resolver := NewResolver(registry)
	in := resolveInput(7, RoleViewer)
	in.Defaults = map[Role][]Permission{
		RoleViewer: {PermViewFeed, "launch:missiles"},
	}
	in.Overrides = []UserOverride{{UserID: 7, Permission: "open:backdoor", Granted: true}}

	set := resolver.Compute(in)
	if set.Has("launch:missiles") || set.Has("open:backdoor") {
		t.Fatalf("unregistered tokens must never grant")
	}
	if !set.Has(PermViewFeed) {
		t.Fatalf("registered default dropped")
	}
}

func TestComputeImpersonationSwapsBaseRole(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())
	in := resolveInput(1, RoleAdmin)
	in.Impersonating = RoleViewer
	in.Overrides = []UserOverride{{UserID: 1, Permission: PermExportIntel, Granted: true}}

	set := resolver.Compute(in)
	if set.BaseRole() != RoleViewer || !set.Impersonated() {
		t.Fatalf("expected impersonated viewer base, got %s impersonated=%v", set.BaseRole(), set.Impersonated())
	}
	if set.Has(PermManageRBAC) {
		t.Fatalf("admin defaults must not leak into impersonated set")
	}
	// Overrides belong to the real user and survive impersonation.
	if !set.Has(PermExportIntel) {
		t.Fatalf("user override must apply while impersonating")
	}
}

func TestComputeImpersonationRequiresAdmin(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())
	in := resolveInput(7, RoleTI)
	in.Impersonating = RoleAdmin

	set := resolver.Compute(in)
	if set.Impersonated() || set.BaseRole() != RoleTI {
		t.Fatalf("non-admin impersonation must be ignored")
	}
	if set.Has(PermManageRBAC) {
		t.Fatalf("non-admin gained admin defaults through impersonation request")
	}
}

func TestEffectiveSetHasFailsClosedOnUnregistered(t *testing.T) {
	set := EffectiveSet{}
	if set.Has(PermViewFeed) {
		t.Fatalf("zero-value set must deny everything")
	}
}
