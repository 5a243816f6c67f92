package models

import "time"

// Course represents a taught course owned by a department.
type Course struct {
	ID              string    `db:"id" json:"id"`
	DepartmentID    string    `db:"department_id" json:"department_id"`
	Code            string    `db:"code" json:"code"`
	Name            string    `db:"name" json:"name"`
	Instructor      string    `db:"instructor" json:"instructor"`
	Year            int       `db:"year" json:"year"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail extends Course with the derived enrollment count.
type CourseDetail struct {
	Course
	EnrollmentCount int `db:"enrollment_count" json:"enrollment_count"`
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	DepartmentID string
	Year         *int
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
