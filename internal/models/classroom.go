package models

import "time"

// Classroom represents an exam room. Capacity is the authoritative number
// of students the room may hold. Rows, Columns and SeatGroup describe the
// physical desk layout used for seat placement; the geometry may expose
// fewer usable seats than Capacity allows.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Rows      int       `db:"rows" json:"rows"`
	Columns   int       `db:"columns" json:"columns"`
	SeatGroup int       `db:"seat_group" json:"seat_group"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter defines filter criteria for listing classrooms.
type ClassroomFilter struct {
	Search      string
	MinCapacity *int
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
