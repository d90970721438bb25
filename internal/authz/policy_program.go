package authz

import "github.com/unidesk/uniportal-api/internal/models"

// ProgramPolicy decides access to program records.
type ProgramPolicy struct{}

// View delegates to the hierarchical scoper.
func (ProgramPolicy) View(actor *models.User, target *models.Program) bool {
	return CanAccessProgram(actor, target)
}

// Create allows department heads only; the store operation pins the new
// program to the head's department.
func (ProgramPolicy) Create(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleDepartmentHead
}

// Update allows a department head on programs within their department and a
// program head on their own program.
func (ProgramPolicy) Update(actor *models.User, target *models.Program) bool {
	if actor == nil || target == nil {
		return false
	}

	switch actor.Role {
	case models.RoleDepartmentHead:
		return actor.DepartmentID != nil && *actor.DepartmentID == target.DepartmentID
	case models.RoleProgramHead:
		return actor.ProgramID != nil && *actor.ProgramID == target.ID
	default:
		return false
	}
}

// Delete allows a department head on programs within their department.
// Program heads may not delete their own program.
func (ProgramPolicy) Delete(actor *models.User, target *models.Program) bool {
	if actor == nil || target == nil || actor.Role != models.RoleDepartmentHead {
		return false
	}
	return actor.DepartmentID != nil && *actor.DepartmentID == target.DepartmentID
}
