package authz

import "github.com/unidesk/uniportal-api/internal/models"

// UserPolicy decides access to user accounts. targetProgram is the target
// user's own program row when they have one; callers load it so department
// heads can be matched against via-program membership.
type UserPolicy struct{}

// View allows admins, the user themselves, department heads over users in
// their department, and program heads over users sharing their program.
func (p UserPolicy) View(actor, target *models.User, targetProgram *models.Program) bool {
	return p.manage(actor, target, targetProgram, true)
}

// Update mirrors View.
func (p UserPolicy) Update(actor, target *models.User, targetProgram *models.Program) bool {
	return p.manage(actor, target, targetProgram, true)
}

// Delete mirrors View except nobody may delete their own account.
func (p UserPolicy) Delete(actor, target *models.User, targetProgram *models.Program) bool {
	if actor != nil && target != nil && actor.ID == target.ID {
		return false
	}
	return p.manage(actor, target, targetProgram, false)
}

// AssignRole gates role changes. Self-assignment and unknown roles are always
// rejected. Admins may hand out any defined role; department heads may hand
// out any role except department_head, and only inside their department.
func (UserPolicy) AssignRole(actor, target *models.User, targetProgram *models.Program, role models.UserRole) bool {
	if actor == nil || target == nil || actor.ID == target.ID {
		return false
	}
	if !models.KnownRole(role) {
		return false
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDepartmentHead:
		if role == models.RoleDepartmentHead {
			return false
		}
		return actor.DepartmentID != nil && CanAccessDepartment(target, targetProgram, *actor.DepartmentID)
	default:
		return false
	}
}

// AssignOrganization gates department/program reassignment with the same
// actor restrictions as AssignRole, minus the role-value check.
func (UserPolicy) AssignOrganization(actor, target *models.User, targetProgram *models.Program) bool {
	if actor == nil || target == nil || actor.ID == target.ID {
		return false
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDepartmentHead:
		return actor.DepartmentID != nil && CanAccessDepartment(target, targetProgram, *actor.DepartmentID)
	default:
		return false
	}
}

func (UserPolicy) manage(actor, target *models.User, targetProgram *models.Program, allowSelf bool) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	if allowSelf && actor.ID == target.ID {
		return true
	}

	switch actor.Role {
	case models.RoleDepartmentHead:
		return actor.DepartmentID != nil && CanAccessDepartment(target, targetProgram, *actor.DepartmentID)
	case models.RoleProgramHead:
		return actor.ProgramID != nil && target.ProgramID != nil && *actor.ProgramID == *target.ProgramID
	default:
		return false
	}
}
