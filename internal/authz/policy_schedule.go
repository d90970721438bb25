package authz

import "github.com/unidesk/uniportal-api/internal/models"

// SchedulePolicy decides access to schedules and guards the approval state
// machine. scheduleProgram is the program owning the schedule; callers load
// it alongside the schedule row.
type SchedulePolicy struct{}

// View allows admins everywhere, program heads on their own program's
// schedules, department heads on schedules under their department, and
// instructors/students on approved schedules of programs they can access.
func (SchedulePolicy) View(actor *models.User, s *models.Schedule, scheduleProgram *models.Program) bool {
	if actor == nil || s == nil {
		return false
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleProgramHead:
		return actor.ProgramID != nil && *actor.ProgramID == s.ProgramID
	case models.RoleDepartmentHead:
		return scheduleProgram != nil && actor.DepartmentID != nil &&
			*actor.DepartmentID == scheduleProgram.DepartmentID
	case models.RoleInstructor, models.RoleStudent:
		return s.Status == models.ScheduleStatusApproved && CanAccessProgram(actor, scheduleProgram)
	default:
		return false
	}
}

// Update allows the owning program head while the schedule is editable
// (draft or rejected). Submit shares this guard: resubmission after a
// rejection goes through the same gate as the first submission.
func (SchedulePolicy) Update(actor *models.User, s *models.Schedule) bool {
	if actor == nil || s == nil || actor.Role != models.RoleProgramHead {
		return false
	}
	if actor.ProgramID == nil || *actor.ProgramID != s.ProgramID {
		return false
	}
	return s.Status == models.ScheduleStatusDraft || s.Status == models.ScheduleStatusRejected
}

// Submit is the Update guard evaluated at submission time.
func (p SchedulePolicy) Submit(actor *models.User, s *models.Schedule) bool {
	return p.Update(actor, s)
}

// Delete allows the owning program head on drafts only.
func (SchedulePolicy) Delete(actor *models.User, s *models.Schedule) bool {
	if actor == nil || s == nil || actor.Role != models.RoleProgramHead {
		return false
	}
	if actor.ProgramID == nil || *actor.ProgramID != s.ProgramID {
		return false
	}
	return s.Status == models.ScheduleStatusDraft
}

// Review gates approve/reject: the department head whose department owns the
// schedule's program, and only while the schedule is pending approval. The
// status precondition re-checked at transition time is what serialises
// concurrent reviews.
func (SchedulePolicy) Review(actor *models.User, s *models.Schedule, scheduleProgram *models.Program) bool {
	if actor == nil || s == nil || scheduleProgram == nil {
		return false
	}
	if actor.Role != models.RoleDepartmentHead {
		return false
	}
	if actor.DepartmentID == nil || *actor.DepartmentID != scheduleProgram.DepartmentID {
		return false
	}
	return s.Status == models.ScheduleStatusPending
}
