package models

import "time"

// NotificationSeverity ranks in-app notifications.
type NotificationSeverity string

const (
	NotificationSeverityInfo    NotificationSeverity = "info"
	NotificationSeveritySuccess NotificationSeverity = "success"
	NotificationSeverityWarning NotificationSeverity = "warning"
	NotificationSeverityError   NotificationSeverity = "error"
)

// Notification is an in-app notification row addressed to a single user.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Severity  NotificationSeverity `db:"severity" json:"severity"`
	Link      string               `db:"link" json:"link"`
	ReadAt    *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter lists notifications for a user.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
