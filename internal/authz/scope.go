package authz

import "github.com/unidesk/uniportal-api/internal/models"

// CanAccessDepartment reports whether the user belongs to the department,
// either directly (department head) or through their program. userProgram is
// the user's own program row, nil when they have none; callers load it.
func CanAccessDepartment(u *models.User, userProgram *models.Program, departmentID string) bool {
	if u == nil || departmentID == "" {
		return false
	}

	switch u.Role {
	case models.RoleDepartmentHead:
		return u.DepartmentID != nil && *u.DepartmentID == departmentID
	case models.RoleProgramHead, models.RoleInstructor, models.RoleStudent:
		return userProgram != nil && userProgram.DepartmentID == departmentID
	default:
		return false
	}
}

// CanAccessProgram reports whether the user may act within the target
// program: their own program (program head, student), a program of their
// department (department head), or any program (instructor; call sites
// narrow this where needed).
func CanAccessProgram(u *models.User, target *models.Program) bool {
	if u == nil || target == nil {
		return false
	}

	switch u.Role {
	case models.RoleProgramHead, models.RoleStudent:
		return u.ProgramID != nil && *u.ProgramID == target.ID
	case models.RoleDepartmentHead:
		return u.DepartmentID != nil && *u.DepartmentID == target.DepartmentID
	case models.RoleInstructor:
		return true
	default:
		return false
	}
}

// InferredDepartmentID resolves the department a user answers to: their own
// for department heads, their program's parent for program heads and
// students. The second return is false when no department can be inferred.
func InferredDepartmentID(u *models.User, userProgram *models.Program) (string, bool) {
	if u == nil {
		return "", false
	}

	switch u.Role {
	case models.RoleDepartmentHead:
		if u.DepartmentID != nil && *u.DepartmentID != "" {
			return *u.DepartmentID, true
		}
	case models.RoleProgramHead, models.RoleStudent:
		if userProgram != nil && userProgram.DepartmentID != "" {
			return userProgram.DepartmentID, true
		}
	}
	return "", false
}
