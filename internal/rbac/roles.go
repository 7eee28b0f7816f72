package rbac

import "slices"

// Role names. Keep these stable; they mirror the backend's role enum.
const (
	RoleAdmin       = "admin"
	RoleOrganizer   = "organizer"
	RoleJudge       = "judge"
	RoleMentor      = "mentor"
	RoleParticipant = "participant"
)

var all = []string{RoleAdmin, RoleOrganizer, RoleJudge, RoleMentor, RoleParticipant}

func Valid(role string) bool { return slices.Contains(all, role) }

// HasAnyRole reports whether roles intersects allowed.
// Admin gets no implicit pass; list it when it should be allowed.
func HasAnyRole(roles []string, allowed ...string) bool {
	for _, r := range roles {
		if slices.Contains(allowed, r) {
			return true
		}
	}
	return false
}

func IsAdmin(roles []string) bool { return slices.Contains(roles, RoleAdmin) }
