package models

import "time"

// Exam is one scheduled sitting of a course in a single room. A course
// split across several rooms produces one Exam row per room sharing the
// same date and start time. Category groups exams belonging to the same
// exam period (e.g. "midterm-2026-spring") so a period can be regenerated
// or deleted as a unit.
type Exam struct {
	ID              string    `db:"id" json:"id"`
	Category        string    `db:"category" json:"category"`
	CourseID        string    `db:"course_id" json:"course_id"`
	ClassroomID     string    `db:"classroom_id" json:"classroom_id"`
	ExamDate        time.Time `db:"exam_date" json:"exam_date"`
	StartMinute     int       `db:"start_minute" json:"start_minute"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	BreakMinutes    int       `db:"break_minutes" json:"break_minutes"`
	StudentsInRoom  int       `db:"students_in_room" json:"students_in_room"`
	TotalStudents   int       `db:"total_students" json:"total_students"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ExamDetail extends Exam with course and classroom display fields.
type ExamDetail struct {
	Exam
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
	CourseYear    int    `db:"course_year" json:"course_year"`
	Instructor    string `db:"instructor" json:"instructor"`
	ClassroomCode string `db:"classroom_code" json:"classroom_code"`
	ClassroomName string `db:"classroom_name" json:"classroom_name"`
}

// ExamFilter defines filter criteria for listing exams.
type ExamFilter struct {
	Category string
	CourseID string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// ScheduleError reports a course the scheduler could not place.
type ScheduleError struct {
	CourseID      string `json:"course_id"`
	CourseCode    string `json:"course_code"`
	CourseName    string `json:"course_name"`
	Enrollment    int    `json:"enrollment"`
	TotalCapacity int    `json:"total_capacity"`
	Reason        string `json:"reason"`
}

// EndMinute returns the minute of day at which the room becomes free
// again, including the cleanup break after the exam.
func (e *Exam) EndMinute() int {
	return e.StartMinute + e.DurationMinutes + e.BreakMinutes
}
