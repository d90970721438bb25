package models

// CreateUserRequest provisions a new account.
type CreateUserRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=8"`
	FullName     string   `json:"full_name" validate:"required"`
	Role         UserRole `json:"role" validate:"required"`
	DepartmentID *string  `json:"department_id,omitempty"`
	ProgramID    *string  `json:"program_id,omitempty"`
}

// UpdateUserRequest edits profile fields. Role and organizational binding go
// through their own endpoints.
type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// AssignRoleRequest changes a user's role.
type AssignRoleRequest struct {
	Role UserRole `json:"role" validate:"required"`
}

// AssignOrganizationRequest rebinds a user to a department and/or program.
type AssignOrganizationRequest struct {
	DepartmentID *string `json:"department_id,omitempty"`
	ProgramID    *string `json:"program_id,omitempty"`
}

// UpdateDepartmentRequest edits a department's descriptive fields.
type UpdateDepartmentRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// CreateProgramRequest adds a program under a department.
type CreateProgramRequest struct {
	DepartmentID string `json:"department_id" validate:"required"`
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
}

// UpdateProgramRequest edits a program's descriptive fields.
type UpdateProgramRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// CreateSubjectRequest adds a subject to the actor's department.
type CreateSubjectRequest struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Units        int    `json:"units" validate:"required,min=1"`
	LectureHours int    `json:"lecture_hours" validate:"min=0"`
	LabHours     int    `json:"lab_hours" validate:"min=0"`
}

// UpdateSubjectRequest edits a subject.
type UpdateSubjectRequest struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Units        int    `json:"units" validate:"required,min=1"`
	LectureHours int    `json:"lecture_hours" validate:"min=0"`
	LabHours     int    `json:"lab_hours" validate:"min=0"`
	IsActive     bool   `json:"is_active"`
}

// CreateRoomRequest adds a room.
type CreateRoomRequest struct {
	Code     string   `json:"code" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Building string   `json:"building"`
	Capacity int      `json:"capacity" validate:"min=0"`
	Type     RoomType `json:"type" validate:"required,oneof=lecture laboratory"`
}

// UpdateRoomRequest edits a room.
type UpdateRoomRequest struct {
	Code     string   `json:"code" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Building string   `json:"building"`
	Capacity int      `json:"capacity" validate:"min=0"`
	Type     RoomType `json:"type" validate:"required,oneof=lecture laboratory"`
	IsActive bool     `json:"is_active"`
}

// ScheduleItemInput is one timetable entry in a create or update payload.
type ScheduleItemInput struct {
	SubjectID    string  `json:"subject_id" validate:"required"`
	InstructorID *string `json:"instructor_id,omitempty"`
	RoomID       *string `json:"room_id,omitempty"`
	DayOfWeek    string  `json:"day_of_week" validate:"required,oneof=monday tuesday wednesday thursday friday saturday"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
	Section      string  `json:"section" validate:"required"`
}

// CreateScheduleRequest authors a new draft schedule.
type CreateScheduleRequest struct {
	ProgramID    string              `json:"program_id" validate:"required"`
	AcademicYear string              `json:"academic_year" validate:"required"`
	Semester     string              `json:"semester" validate:"required"`
	YearLevel    int                 `json:"year_level" validate:"required,min=1,max=6"`
	Block        string              `json:"block" validate:"required"`
	Items        []ScheduleItemInput `json:"items" validate:"dive"`
}

// UpdateScheduleRequest replaces the timetable of a draft or rejected
// schedule.
type UpdateScheduleRequest struct {
	Items []ScheduleItemInput `json:"items" validate:"required,min=1,dive"`
}

// ReviewDecision is the reviewer's verdict on a pending schedule.
type ReviewDecision string

const (
	ReviewDecisionApprove ReviewDecision = "approve"
	ReviewDecisionReject  ReviewDecision = "reject"
)

// ReviewScheduleRequest carries an approve or reject verdict. Remarks are
// required when rejecting.
type ReviewScheduleRequest struct {
	Decision ReviewDecision `json:"decision" validate:"required,oneof=approve reject"`
	Remarks  string         `json:"remarks,omitempty"`
}

// CreateFacultyLoadRequest assigns a subject section to an instructor.
type CreateFacultyLoadRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Semester     string `json:"semester" validate:"required"`
	Section      string `json:"section" validate:"required"`
	Units        int    `json:"units" validate:"required,min=1"`
}
