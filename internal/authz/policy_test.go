package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unidesk/uniportal-api/internal/models"
)

var (
	dept5   = &models.Department{ID: "dept-5", Code: "COE", Name: "College of Engineering"}
	prog10  = &models.Program{ID: "prog-10", DepartmentID: "dept-5", Code: "BSCS"}
	prog11  = &models.Program{ID: "prog-11", DepartmentID: "dept-5", Code: "BSIT"}
	prog20  = &models.Program{ID: "prog-20", DepartmentID: "dept-9", Code: "BSN"}
	headD5  = &models.User{ID: "head-5", Role: models.RoleDepartmentHead, DepartmentID: strptr("dept-5")}
	headD9  = &models.User{ID: "head-9", Role: models.RoleDepartmentHead, DepartmentID: strptr("dept-9")}
	ph10    = &models.User{ID: "ph-10", Role: models.RoleProgramHead, ProgramID: strptr("prog-10")}
	ph11    = &models.User{ID: "ph-11", Role: models.RoleProgramHead, ProgramID: strptr("prog-11")}
	admin   = &models.User{ID: "admin-1", Role: models.RoleAdmin}
	teach   = &models.User{ID: "inst-1", Role: models.RoleInstructor}
	stud10  = &models.User{ID: "stud-1", Role: models.RoleStudent, ProgramID: strptr("prog-10")}
	sched10 = func(status models.ScheduleStatus) *models.Schedule {
		return &models.Schedule{ID: "sched-1", ProgramID: "prog-10", Status: status, CreatorID: "ph-10"}
	}
)

func TestDepartmentPolicyView(t *testing.T) {
	var p DepartmentPolicy

	assert.True(t, p.View(headD5, nil, dept5))
	assert.False(t, p.View(headD9, nil, dept5))
	assert.True(t, p.View(ph10, prog10, dept5))
	assert.False(t, p.View(ph10, prog10, &models.Department{ID: "dept-9"}))
	assert.False(t, p.View(stud10, prog10, dept5))
	assert.False(t, p.View(teach, nil, dept5))
}

func TestDepartmentPolicyLifecycle(t *testing.T) {
	var p DepartmentPolicy

	assert.True(t, p.Update(headD5, dept5))
	assert.False(t, p.Update(headD9, dept5))
	assert.False(t, p.Update(admin, dept5))

	// pre-provisioned: nobody creates or deletes departments
	assert.False(t, p.Create(admin))
	assert.False(t, p.Create(headD5))
	assert.False(t, p.Delete(admin, dept5))
	assert.False(t, p.Delete(headD5, dept5))
}

func TestProgramPolicyUpdate(t *testing.T) {
	var p ProgramPolicy

	// program head on own program, sibling program head denied but the
	// sibling still views the shared department
	assert.True(t, p.Update(ph10, prog10))
	assert.False(t, p.Update(ph11, prog10))
	assert.True(t, DepartmentPolicy{}.View(ph11, prog11, dept5))

	assert.True(t, p.Update(headD5, prog10))
	assert.True(t, p.Update(headD5, prog11))
	assert.False(t, p.Update(headD9, prog10))
}

func TestProgramPolicyCreateDelete(t *testing.T) {
	var p ProgramPolicy

	assert.True(t, p.Create(headD5))
	assert.False(t, p.Create(ph10))
	assert.False(t, p.Create(admin))

	assert.True(t, p.Delete(headD5, prog10))
	assert.False(t, p.Delete(headD9, prog10))
	assert.False(t, p.Delete(ph10, prog10))
}

func TestSubjectPolicy(t *testing.T) {
	var p SubjectPolicy
	subj := &models.Subject{ID: "subj-1", DepartmentID: "dept-5"}

	assert.True(t, p.ViewAny(headD5))
	assert.False(t, p.ViewAny(ph10))
	assert.True(t, p.Create(headD5))
	assert.False(t, p.Create(stud10))

	assert.True(t, p.View(headD5, subj))
	assert.True(t, p.Update(headD5, subj))
	assert.True(t, p.Delete(headD5, subj))
	assert.False(t, p.Update(headD9, subj))
	assert.False(t, p.Update(ph10, subj))
}

func TestUserPolicyView(t *testing.T) {
	var p UserPolicy

	target := &models.User{ID: "stud-1", Role: models.RoleStudent, ProgramID: strptr("prog-10")}

	assert.True(t, p.View(admin, target, prog10))
	assert.True(t, p.View(target, target, prog10), "self view")
	assert.True(t, p.View(headD5, target, prog10))
	assert.False(t, p.View(headD9, target, prog10))
	assert.True(t, p.View(ph10, target, prog10))
	assert.False(t, p.View(ph11, target, prog10))
	assert.False(t, p.View(stud10, &models.User{ID: "other"}, nil))
}

func TestUserPolicyDeleteForbidsSelf(t *testing.T) {
	var p UserPolicy

	target := &models.User{ID: "stud-1", Role: models.RoleStudent, ProgramID: strptr("prog-10")}

	assert.True(t, p.Delete(admin, target, prog10))
	assert.False(t, p.Delete(admin, admin, nil))
	assert.False(t, p.Delete(target, target, prog10))
	assert.True(t, p.Delete(headD5, target, prog10))
}

func TestUserPolicyAssignRole(t *testing.T) {
	var p UserPolicy

	target := &models.User{ID: "inst-2", Role: models.RoleInstructor, ProgramID: strptr("prog-10")}

	assert.False(t, p.AssignRole(admin, admin, nil, models.RoleInstructor), "self assignment")
	assert.True(t, p.AssignRole(admin, target, prog10, models.RoleDepartmentHead))
	assert.False(t, p.AssignRole(admin, target, prog10, "dean"), "unknown role")

	assert.True(t, p.AssignRole(headD5, target, prog10, models.RoleProgramHead))
	assert.False(t, p.AssignRole(headD5, target, prog10, models.RoleDepartmentHead))
	assert.False(t, p.AssignRole(headD9, target, prog10, models.RoleProgramHead), "outside department")
	assert.False(t, p.AssignRole(ph10, target, prog10, models.RoleStudent))
}

func TestUserPolicyAssignOrganization(t *testing.T) {
	var p UserPolicy

	target := &models.User{ID: "inst-2", Role: models.RoleInstructor, ProgramID: strptr("prog-10")}

	assert.True(t, p.AssignOrganization(admin, target, prog10))
	assert.False(t, p.AssignOrganization(admin, admin, nil))
	assert.True(t, p.AssignOrganization(headD5, target, prog10))
	assert.False(t, p.AssignOrganization(headD9, target, prog10))
	assert.False(t, p.AssignOrganization(ph10, target, prog10))
}

func TestSchedulePolicyView(t *testing.T) {
	var p SchedulePolicy

	draft := sched10(models.ScheduleStatusDraft)
	approved := sched10(models.ScheduleStatusApproved)

	assert.True(t, p.View(admin, draft, prog10))
	assert.True(t, p.View(ph10, draft, prog10))
	assert.False(t, p.View(ph11, draft, prog10))
	assert.True(t, p.View(headD5, draft, prog10))
	assert.False(t, p.View(headD9, draft, prog10))

	// instructors and students only ever see approved schedules
	assert.False(t, p.View(teach, draft, prog10))
	assert.True(t, p.View(teach, approved, prog10))
	assert.False(t, p.View(stud10, draft, prog10))
	assert.True(t, p.View(stud10, approved, prog10))
	assert.False(t, p.View(stud10, &models.Schedule{ProgramID: "prog-11", Status: models.ScheduleStatusApproved}, prog11))
}

func TestSchedulePolicyUpdateSubmit(t *testing.T) {
	var p SchedulePolicy

	assert.True(t, p.Submit(ph10, sched10(models.ScheduleStatusDraft)))
	assert.True(t, p.Submit(ph10, sched10(models.ScheduleStatusRejected)))
	assert.False(t, p.Submit(ph10, sched10(models.ScheduleStatusPending)))
	assert.False(t, p.Submit(ph10, sched10(models.ScheduleStatusApproved)))
	assert.False(t, p.Submit(ph11, sched10(models.ScheduleStatusDraft)))
	assert.False(t, p.Submit(headD5, sched10(models.ScheduleStatusDraft)))
}

func TestSchedulePolicyDelete(t *testing.T) {
	var p SchedulePolicy

	assert.True(t, p.Delete(ph10, sched10(models.ScheduleStatusDraft)))
	assert.False(t, p.Delete(ph10, sched10(models.ScheduleStatusRejected)))
	assert.False(t, p.Delete(ph10, sched10(models.ScheduleStatusPending)))
	assert.False(t, p.Delete(ph11, sched10(models.ScheduleStatusDraft)))
}

func TestSchedulePolicyReview(t *testing.T) {
	var p SchedulePolicy

	pending := sched10(models.ScheduleStatusPending)

	assert.True(t, p.Review(headD5, pending, prog10))
	assert.False(t, p.Review(headD9, pending, prog10), "different department")
	assert.False(t, p.Review(headD5, sched10(models.ScheduleStatusDraft), prog10))
	assert.False(t, p.Review(headD5, sched10(models.ScheduleStatusApproved), prog10))
	assert.False(t, p.Review(ph10, pending, prog10))
	assert.False(t, p.Review(admin, pending, prog10))
}
