package config

import "strings"

const DefaultAdminRole = "Admin"

// AuthzConfig names the roles allowed to call the management API.
type AuthzConfig struct {
	AdminRoleNames string `env:"ADMIN_ROLE_NAMES" env-default:"Admin"`
}

// Roles returns the parsed admin role names.
func (c AuthzConfig) Roles() []string {
	return ParseAdminRoleNames(c.AdminRoleNames)
}

// ParseAdminRoleNames parses a comma-separated list of admin role names
// Returns a slice of trimmed, non-empty role names
// Default roles if empty: ["Admin"]
func ParseAdminRoleNames(envValue string) []string {
	parts := strings.Split(envValue, ",")
	roles := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			roles = append(roles, trimmed)
		}
	}

	if len(roles) == 0 {
		return []string{DefaultAdminRole}
	}
	return roles
}

// GetPrimaryAdminRole returns the first role from the admin roles list
// This is the role granted to the default user during bootstrap
func GetPrimaryAdminRole(adminRoles []string) string {
	if len(adminRoles) == 0 {
		return DefaultAdminRole
	}
	return adminRoles[0]
}
