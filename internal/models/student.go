package models

import "time"

// Student represents an enrolled student.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Number       string    `db:"number" json:"number"`
	FullName     string    `db:"full_name" json:"full_name"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Year         int       `db:"year" json:"year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter defines filter criteria for listing students.
type StudentFilter struct {
	DepartmentID string
	Year         *int
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
