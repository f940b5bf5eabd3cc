package utils

import "strings"

// Permission levels
const (
	ModeratorPermission = "moderator"
	MemberPermission    = "member"
)

// HasAnyRole reports whether any of roleNames appears in wanted. Names
// compare case-insensitively.
func HasAnyRole(roleNames, wanted []string) bool {
	for _, r := range roleNames {
		for _, w := range wanted {
			if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

// CheckPermission returns the permission level for a member holding roleNames.
func CheckPermission(roleNames, moderatorRoles []string) string {
	if HasAnyRole(roleNames, moderatorRoles) {
		return ModeratorPermission
	}
	return MemberPermission
}
