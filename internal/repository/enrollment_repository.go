package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniexam/exam-scheduler-api/internal/models"
)

// EnrollmentRepository manages the student-course enrollment link table.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByCourse returns every enrollment for a course with student details.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.created_at,
        s.number AS student_number, s.full_name AS student_name,
        c.code AS course_code, c.name AS course_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id = $1
        ORDER BY s.number ASC`
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments by course: %w", err)
	}
	return rows, nil
}

// StudentIDsByCourse returns the enrolled student IDs per course for the
// given courses. An empty course set returns an empty map.
func (r *EnrollmentRepository) StudentIDsByCourse(ctx context.Context, courseIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In("SELECT course_id, student_id FROM enrollments WHERE course_id IN (?) ORDER BY course_id, student_id", courseIDs)
	if err != nil {
		return nil, fmt.Errorf("build enrollment filter: %w", err)
	}
	rows := []struct {
		CourseID  string `db:"course_id"`
		StudentID string `db:"student_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	for _, row := range rows {
		result[row.CourseID] = append(result[row.CourseID], row.StudentID)
	}
	return result, nil
}

// Exists reports whether a student is already enrolled in a course.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = "SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, created_at)
        VALUES (:id, :student_id, :course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM enrollments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
