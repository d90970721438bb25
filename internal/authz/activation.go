package authz

import "github.com/unidesk/uniportal-api/internal/models"

// IsActive reports whether the account may use the portal. The schema keeps
// two activation flags and both must agree: a partial update that flips only
// one of them reads as deactivated.
func IsActive(u *models.User) bool {
	if u == nil {
		return false
	}
	return u.IsActive && u.Status == models.UserStatusActive
}
