package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin          UserRole = "admin"
	RoleDepartmentHead UserRole = "department_head"
	RoleProgramHead    UserRole = "program_head"
	RoleInstructor     UserRole = "instructor"
	RoleStudent        UserRole = "student"
)

// KnownRole reports whether the role is one of the defined roles.
func KnownRole(role UserRole) bool {
	switch role {
	case RoleAdmin, RoleDepartmentHead, RoleProgramHead, RoleInstructor, RoleStudent:
		return true
	default:
		return false
	}
}

// UserStatus is the string activation flag kept alongside the boolean one.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents an application user stored in the users table.
// DepartmentID is set for department heads; ProgramID for program heads and
// students. Instructors may carry either, both, or neither.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	DepartmentID *string    `db:"department_id" json:"department_id,omitempty"`
	ProgramID    *string    `db:"program_id" json:"program_id,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	Status       UserStatus `db:"status" json:"status"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role         *UserRole
	DepartmentID string
	ProgramID    string
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
