package models

import "time"

// RoomType distinguishes lecture rooms from laboratories.
type RoomType string

const (
	RoomTypeLecture RoomType = "lecture"
	RoomTypeLab     RoomType = "laboratory"
)

// Room is a bookable room referenced by schedule items.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Building  string    `db:"building" json:"building"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Type      RoomType  `db:"type" json:"type"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	Building string
	Type     string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
