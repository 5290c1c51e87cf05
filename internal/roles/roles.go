// Package roles derives portal roles from Cognito group memberships.
package roles

// Role classifies a portal user.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
	RoleUnknown   Role = "unknown"
)

// Cognito group names backing each role.
const (
	groupAdmins     = "admins"
	groupProfessors = "professors"
	groupStudents   = "students"
)

// Resolve maps group memberships to a role. Precedence is fixed:
// admin over professor over student. Roles are never persisted;
// callers recompute on every access so refreshed claims win.
func Resolve(groups []string) Role {
	if len(groups) == 0 {
		return RoleUnknown
	}
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	switch {
	case has(set, groupAdmins):
		return RoleAdmin
	case has(set, groupProfessors):
		return RoleProfessor
	case has(set, groupStudents):
		return RoleStudent
	}
	return RoleUnknown
}

// Folder returns the object-storage folder for a role.
func Folder(r Role) string {
	switch r {
	case RoleProfessor:
		return "professors"
	case RoleAdmin:
		return "admins"
	default:
		return "students"
	}
}

func has(set map[string]struct{}, group string) bool {
	_, ok := set[group]
	return ok
}
