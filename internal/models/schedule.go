package models

import "time"

// ScheduleStatus is the lifecycle state of a class schedule.
type ScheduleStatus string

const (
	ScheduleStatusDraft    ScheduleStatus = "draft"
	ScheduleStatusPending  ScheduleStatus = "pending_approval"
	ScheduleStatusApproved ScheduleStatus = "approved"
	ScheduleStatusRejected ScheduleStatus = "rejected"
)

// Schedule is a block timetable authored by a program head for one term.
// Status moves draft -> pending_approval -> approved|rejected; a rejected
// schedule may be resubmitted.
type Schedule struct {
	ID            string         `db:"id" json:"id"`
	ProgramID     string         `db:"program_id" json:"program_id"`
	AcademicYear  string         `db:"academic_year" json:"academic_year"`
	Semester      string         `db:"semester" json:"semester"`
	YearLevel     int            `db:"year_level" json:"year_level"`
	Block         string         `db:"block" json:"block"`
	Status        ScheduleStatus `db:"status" json:"status"`
	CreatorID     string         `db:"creator_id" json:"creator_id"`
	SubmittedAt   *time.Time     `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewRemarks *string        `db:"review_remarks" json:"review_remarks,omitempty"`
	ReviewerID    *string        `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`

	Items []ScheduleItem `db:"-" json:"items,omitempty"`
}

// ScheduleItem is one timetabled occurrence within a schedule.
type ScheduleItem struct {
	ID           string    `db:"id" json:"id"`
	ScheduleID   string    `db:"schedule_id" json:"schedule_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	RoomID       *string   `db:"room_id" json:"room_id,omitempty"`
	DayOfWeek    string    `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Section      string    `db:"section" json:"section"`
	Position     int       `db:"position" json:"position"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	ProgramIDs   []string
	DepartmentID string
	AcademicYear string
	Semester     string
	Status       *ScheduleStatus
	CreatorID    string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
