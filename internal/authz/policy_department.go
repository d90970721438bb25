package authz

import "github.com/unidesk/uniportal-api/internal/models"

// DepartmentPolicy decides access to department records. Departments are
// pre-provisioned; no role may create, delete, or restore them.
type DepartmentPolicy struct{}

// View allows a department head on their own department and a program head
// on their program's parent department.
func (DepartmentPolicy) View(actor *models.User, actorProgram *models.Program, dept *models.Department) bool {
	if actor == nil || dept == nil {
		return false
	}

	switch actor.Role {
	case models.RoleDepartmentHead:
		return actor.DepartmentID != nil && *actor.DepartmentID == dept.ID
	case models.RoleProgramHead:
		return actorProgram != nil && actorProgram.DepartmentID == dept.ID
	default:
		return false
	}
}

// Update allows a department head on their own department only.
func (DepartmentPolicy) Update(actor *models.User, dept *models.Department) bool {
	if actor == nil || dept == nil || actor.Role != models.RoleDepartmentHead {
		return false
	}
	return actor.DepartmentID != nil && *actor.DepartmentID == dept.ID
}

// Create is always denied.
func (DepartmentPolicy) Create(*models.User) bool { return false }

// Delete is always denied.
func (DepartmentPolicy) Delete(*models.User, *models.Department) bool { return false }
