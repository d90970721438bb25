package authz

import (
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"

	"github.com/unidesk/uniportal-api/internal/models"
)

// ValidateAssignment checks that a user's organizational fields are
// consistent with their role:
//
//	department_head: department set, program empty
//	program_head:    program set
//	student:         program set
//	instructor:      unconstrained
//	admin:           unconstrained
//
// Unknown roles always fail. Callers run this on every authenticated request,
// not just at login: an administrator can rewire a user's role or unit while
// that user holds a live session, and a stale session must not keep
// privileges the current configuration no longer grants.
func ValidateAssignment(u *models.User) error {
	if u == nil {
		return appErrors.Clone(appErrors.ErrRoleMisconfigured, "no user record")
	}

	switch u.Role {
	case models.RoleDepartmentHead:
		if u.DepartmentID == nil || *u.DepartmentID == "" {
			return appErrors.Clone(appErrors.ErrRoleMisconfigured, "department head has no department")
		}
		if u.ProgramID != nil && *u.ProgramID != "" {
			return appErrors.Clone(appErrors.ErrRoleMisconfigured, "department head must not be bound to a program")
		}
	case models.RoleProgramHead:
		if u.ProgramID == nil || *u.ProgramID == "" {
			return appErrors.Clone(appErrors.ErrRoleMisconfigured, "program head has no program")
		}
	case models.RoleStudent:
		if u.ProgramID == nil || *u.ProgramID == "" {
			return appErrors.Clone(appErrors.ErrRoleMisconfigured, "student has no program")
		}
	case models.RoleInstructor, models.RoleAdmin:
		// flexible assignment
	default:
		return appErrors.Clone(appErrors.ErrRoleMisconfigured, "unknown role")
	}

	return nil
}
