package models

import "time"

// Department represents an institutional department. Departments are
// pre-provisioned; no role may create or delete them through the API.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Program belongs to exactly one department.
type Program struct {
	ID           string    `db:"id" json:"id"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramFilter describes query params for listing programs.
type ProgramFilter struct {
	DepartmentID string
	Search       string
	Page         int
	PageSize     int
}
