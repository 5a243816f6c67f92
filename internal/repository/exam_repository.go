package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniexam/exam-scheduler-api/internal/models"
)

// ExamRepository manages persistence for scheduled exam sittings.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examDetailColumns = `e.id, e.category, e.course_id, e.classroom_id, e.exam_date, e.start_minute,
        e.duration_minutes, e.break_minutes, e.students_in_room, e.total_students, e.created_at,
        c.code AS course_code, c.name AS course_name, c.year AS course_year, c.instructor,
        r.code AS classroom_code, r.name AS classroom_name`

// List returns exam sittings matching the provided filters.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error) {
	base := `FROM exams e
        JOIN courses c ON c.id = e.course_id
        JOIN classrooms r ON r.id = e.classroom_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("e.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("e.exam_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("e.exam_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY e.exam_date ASC, e.start_minute ASC, c.code ASC LIMIT %d OFFSET %d`,
		examDetailColumns, base, size, offset)

	var exams []models.ExamDetail
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// ListGroup returns every room sitting of one course within a category,
// in the order the rooms were assigned.
func (r *ExamRepository) ListGroup(ctx context.Context, category, courseID string) ([]models.ExamDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM exams e
        JOIN courses c ON c.id = e.course_id
        JOIN classrooms r ON r.id = e.classroom_id
        WHERE e.category = $1 AND e.course_id = $2
        ORDER BY e.created_at ASC, r.capacity DESC`, examDetailColumns)
	var exams []models.ExamDetail
	if err := r.db.SelectContext(ctx, &exams, query, category, courseID); err != nil {
		return nil, fmt.Errorf("list exam group: %w", err)
	}
	return exams, nil
}

// ReplaceCategory atomically replaces every exam in a category with the
// given set. Seat assignments hanging off the old exams are removed first.
func (r *ExamRepository) ReplaceCategory(ctx context.Context, category string, exams []models.Exam) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace category: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM seat_assignments WHERE exam_id IN (SELECT id FROM exams WHERE category = $1)", category); err != nil {
		return fmt.Errorf("clear category seating: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM exams WHERE category = $1", category); err != nil {
		return fmt.Errorf("clear category exams: %w", err)
	}

	const insert = `INSERT INTO exams (id, category, course_id, classroom_id, exam_date, start_minute, duration_minutes, break_minutes, students_in_room, total_students, created_at)
        VALUES (:id, :category, :course_id, :classroom_id, :exam_date, :start_minute, :duration_minutes, :break_minutes, :students_in_room, :total_students, :created_at)`
	now := time.Now().UTC()
	for i := range exams {
		if exams[i].ID == "" {
			exams[i].ID = uuid.NewString()
		}
		if exams[i].CreatedAt.IsZero() {
			exams[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, exams[i]); err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace category: %w", err)
	}
	return nil
}

// DeleteCategory removes every exam in a category together with the seat
// assignments referencing them.
func (r *ExamRepository) DeleteCategory(ctx context.Context, category string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete category: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM seat_assignments WHERE exam_id IN (SELECT id FROM exams WHERE category = $1)", category); err != nil {
		return 0, fmt.Errorf("clear category seating: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM exams WHERE category = $1", category)
	if err != nil {
		return 0, fmt.Errorf("delete category exams: %w", err)
	}
	affected, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete category: %w", err)
	}
	return affected, nil
}

// Categories returns the distinct category tags currently stored.
func (r *ExamRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.SelectContext(ctx, &categories, "SELECT DISTINCT category FROM exams ORDER BY category"); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
