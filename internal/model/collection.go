package model

import (
	"strings"
)

// GlobalCollection holds the rules shared by every tenant.
const GlobalCollection = "rules_global"

// RubroCollection returns the collection path for an industry's rules.
func RubroCollection(rubro string) string {
	return "rules_by_rubro/" + rubro + "/rules"
}

// TenantCollection returns the collection path for a tenant's own rules.
func TenantCollection(tenantID string) string {
	return "tenants/" + tenantID + "/rules"
}

// CollectionTier reports which tier a collection path belongs to.
// The second return value is false for paths that are not rule collections.
func CollectionTier(path string) (Tier, bool) {
	if path == GlobalCollection {
		return TierGlobal, true
	}

	parts := strings.Split(path, "/")
	if len(parts) != 3 || !validSegment(parts[1]) || parts[2] != "rules" {
		return "", false
	}

	switch parts[0] {
	case "rules_by_rubro":
		return TierRubro, true
	case "tenants":
		return TierTenant, true
	}
	return "", false
}

// validSegment reports whether a rubro or tenant ID can name a collection
// without aliasing another one once the path is mapped onto a filesystem.
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}
