package domain

import "strings"

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller as resolved from the access token.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

// IsElevated reports whether p may act on other users' records.
func IsElevated(p Principal) bool {
	role := strings.ToLower(strings.TrimSpace(p.Role))
	return role == RoleManager || role == RoleAdmin
}

// NormalizeRole lower-cases role and falls back to employee for unknown values.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleManager, RoleAdmin:
		return r
	default:
		return RoleEmployee
	}
}
