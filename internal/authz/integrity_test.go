package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unidesk/uniportal-api/internal/models"
)

func strptr(s string) *string { return &s }

func TestValidateAssignmentDepartmentHead(t *testing.T) {
	cases := []struct {
		name         string
		departmentID *string
		programID    *string
		valid        bool
	}{
		{"department only", strptr("dept-1"), nil, true},
		{"no department", nil, nil, false},
		{"empty department", strptr(""), nil, false},
		{"department and program", strptr("dept-1"), strptr("prog-1"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &models.User{Role: models.RoleDepartmentHead, DepartmentID: tc.departmentID, ProgramID: tc.programID}
			err := ValidateAssignment(u)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateAssignmentProgramRoles(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleProgramHead, models.RoleStudent} {
		t.Run(string(role), func(t *testing.T) {
			assert.NoError(t, ValidateAssignment(&models.User{Role: role, ProgramID: strptr("prog-1")}))
			assert.Error(t, ValidateAssignment(&models.User{Role: role}))
			assert.Error(t, ValidateAssignment(&models.User{Role: role, ProgramID: strptr("")}))
		})
	}
}

func TestValidateAssignmentInstructorUnconstrained(t *testing.T) {
	cases := []*models.User{
		{Role: models.RoleInstructor},
		{Role: models.RoleInstructor, DepartmentID: strptr("dept-1")},
		{Role: models.RoleInstructor, ProgramID: strptr("prog-1")},
		{Role: models.RoleInstructor, DepartmentID: strptr("dept-1"), ProgramID: strptr("prog-1")},
	}
	for _, u := range cases {
		assert.NoError(t, ValidateAssignment(u))
	}
}

func TestValidateAssignmentUnknownRole(t *testing.T) {
	assert.Error(t, ValidateAssignment(&models.User{Role: "registrar"}))
	assert.Error(t, ValidateAssignment(&models.User{Role: ""}))
	assert.Error(t, ValidateAssignment(nil))
}

func TestIsActiveRequiresBothFlags(t *testing.T) {
	cases := []struct {
		name     string
		isActive bool
		status   models.UserStatus
		want     bool
	}{
		{"both active", true, models.UserStatusActive, true},
		{"flag off", false, models.UserStatusActive, false},
		{"status inactive", true, models.UserStatusInactive, false},
		{"both off", false, models.UserStatusInactive, false},
		{"status blank", true, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &models.User{IsActive: tc.isActive, Status: tc.status}
			assert.Equal(t, tc.want, IsActive(u))
		})
	}

	assert.False(t, IsActive(nil))
}
