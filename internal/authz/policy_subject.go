package authz

import "github.com/unidesk/uniportal-api/internal/models"

// SubjectPolicy decides access to subject records. Subjects are owned by a
// department and managed solely by its head.
type SubjectPolicy struct{}

// ViewAny allows department heads to browse the catalog.
func (SubjectPolicy) ViewAny(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleDepartmentHead
}

// Create allows department heads only.
func (SubjectPolicy) Create(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleDepartmentHead
}

// View requires the subject to sit in the actor's inferred department.
func (p SubjectPolicy) View(actor *models.User, subject *models.Subject) bool {
	return p.ownsSubject(actor, subject)
}

// Update requires the subject to sit in the actor's inferred department.
func (p SubjectPolicy) Update(actor *models.User, subject *models.Subject) bool {
	return p.ownsSubject(actor, subject)
}

// Delete requires the subject to sit in the actor's inferred department.
func (p SubjectPolicy) Delete(actor *models.User, subject *models.Subject) bool {
	return p.ownsSubject(actor, subject)
}

func (SubjectPolicy) ownsSubject(actor *models.User, subject *models.Subject) bool {
	if actor == nil || subject == nil || actor.Role != models.RoleDepartmentHead {
		return false
	}
	deptID, ok := InferredDepartmentID(actor, nil)
	return ok && subject.DepartmentID == deptID
}
