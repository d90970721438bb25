package models

import "time"

// FacultyLoad assigns a subject section to an instructor for a term.
type FacultyLoad struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     string    `db:"semester" json:"semester"`
	Section      string    `db:"section" json:"section"`
	Units        int       `db:"units" json:"units"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FacultyLoadDetail joins load rows with subject names for listings.
type FacultyLoadDetail struct {
	FacultyLoad
	SubjectCode    string `db:"subject_code" json:"subject_code"`
	SubjectName    string `db:"subject_name" json:"subject_name"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

// FacultyLoadFilter lists loads for an instructor or term.
type FacultyLoadFilter struct {
	InstructorID string
	AcademicYear string
	Semester     string
}
