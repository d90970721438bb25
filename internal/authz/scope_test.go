package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unidesk/uniportal-api/internal/models"
)

func TestCanAccessDepartment(t *testing.T) {
	prog := &models.Program{ID: "prog-10", DepartmentID: "dept-5"}

	head := &models.User{ID: "u1", Role: models.RoleDepartmentHead, DepartmentID: strptr("dept-5")}
	assert.True(t, CanAccessDepartment(head, nil, "dept-5"))
	assert.False(t, CanAccessDepartment(head, nil, "dept-6"))

	programHead := &models.User{ID: "u2", Role: models.RoleProgramHead, ProgramID: strptr("prog-10")}
	assert.True(t, CanAccessDepartment(programHead, prog, "dept-5"))
	assert.False(t, CanAccessDepartment(programHead, prog, "dept-6"))
	assert.False(t, CanAccessDepartment(programHead, nil, "dept-5"))

	student := &models.User{ID: "u3", Role: models.RoleStudent, ProgramID: strptr("prog-10")}
	assert.True(t, CanAccessDepartment(student, prog, "dept-5"))

	admin := &models.User{ID: "u4", Role: models.RoleAdmin}
	assert.False(t, CanAccessDepartment(admin, nil, "dept-5"))
}

func TestCanAccessProgram(t *testing.T) {
	prog := &models.Program{ID: "prog-10", DepartmentID: "dept-5"}
	other := &models.Program{ID: "prog-11", DepartmentID: "dept-5"}

	programHead := &models.User{Role: models.RoleProgramHead, ProgramID: strptr("prog-10")}
	assert.True(t, CanAccessProgram(programHead, prog))
	assert.False(t, CanAccessProgram(programHead, other))

	head := &models.User{Role: models.RoleDepartmentHead, DepartmentID: strptr("dept-5")}
	assert.True(t, CanAccessProgram(head, prog))
	assert.True(t, CanAccessProgram(head, other))
	assert.False(t, CanAccessProgram(head, &models.Program{ID: "prog-20", DepartmentID: "dept-9"}))

	instructor := &models.User{Role: models.RoleInstructor}
	assert.True(t, CanAccessProgram(instructor, prog))

	assert.False(t, CanAccessProgram(nil, prog))
	assert.False(t, CanAccessProgram(programHead, nil))
}

func TestInferredDepartmentID(t *testing.T) {
	prog := &models.Program{ID: "prog-10", DepartmentID: "dept-5"}

	head := &models.User{Role: models.RoleDepartmentHead, DepartmentID: strptr("dept-5")}
	id, ok := InferredDepartmentID(head, nil)
	assert.True(t, ok)
	assert.Equal(t, "dept-5", id)

	programHead := &models.User{Role: models.RoleProgramHead, ProgramID: strptr("prog-10")}
	id, ok = InferredDepartmentID(programHead, prog)
	assert.True(t, ok)
	assert.Equal(t, "dept-5", id)

	student := &models.User{Role: models.RoleStudent, ProgramID: strptr("prog-10")}
	_, ok = InferredDepartmentID(student, nil)
	assert.False(t, ok)

	instructor := &models.User{Role: models.RoleInstructor}
	_, ok = InferredDepartmentID(instructor, prog)
	assert.False(t, ok)
}
