package models

import "time"

// SeatAssignment pins a student to a physical seat for one exam sitting.
// Row is 1-based; Column is the physical column index after seat group
// spacing has been applied.
type SeatAssignment struct {
	ID        string    `db:"id" json:"id"`
	ExamID    string    `db:"exam_id" json:"exam_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SeatRow   int       `db:"seat_row" json:"seat_row"`
	SeatCol   int       `db:"seat_col" json:"seat_col"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SeatAssignmentDetail extends SeatAssignment with student display fields.
type SeatAssignmentDetail struct {
	SeatAssignment
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
}
