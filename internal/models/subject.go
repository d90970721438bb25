package models

import "time"

// Subject is a course offering owned by a department. Lecture and lab hours
// may not both be zero.
type Subject struct {
	ID           string    `db:"id" json:"id"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	Units        int       `db:"units" json:"units"`
	LectureHours int       `db:"lecture_hours" json:"lecture_hours"`
	LabHours     int       `db:"lab_hours" json:"lab_hours"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter describes query params for listing subjects.
type SubjectFilter struct {
	DepartmentID string
	Active       *bool
	Search       string
	Page         int
	PageSize     int
}
