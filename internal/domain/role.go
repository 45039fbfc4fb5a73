package domain

// Role constants define the allowed user roles.
const (
	RoleUser      = "user"
	RoleModerator = "mod"
	RoleAdmin     = "admin"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleUser, RoleModerator, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// IsElevated reports whether the role may act on resources owned by others.
func IsElevated(role string) bool {
	return role == RoleModerator || role == RoleAdmin
}
