package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniexam/exam-scheduler-api/internal/models"
)

// SeatingRepository manages persistence for seat assignments.
type SeatingRepository struct {
	db *sqlx.DB
}

// NewSeatingRepository constructs a SeatingRepository.
func NewSeatingRepository(db *sqlx.DB) *SeatingRepository {
	return &SeatingRepository{db: db}
}

// ListByExam returns the committed seat map for one exam sitting.
func (r *SeatingRepository) ListByExam(ctx context.Context, examID string) ([]models.SeatAssignmentDetail, error) {
	const query = `SELECT a.id, a.exam_id, a.student_id, a.seat_row, a.seat_col, a.created_at,
        s.number AS student_number, s.full_name AS student_name
        FROM seat_assignments a
        JOIN students s ON s.id = a.student_id
        WHERE a.exam_id = $1
        ORDER BY a.seat_row ASC, a.seat_col ASC`
	var seats []models.SeatAssignmentDetail
	if err := r.db.SelectContext(ctx, &seats, query, examID); err != nil {
		return nil, fmt.Errorf("list seating by exam: %w", err)
	}
	return seats, nil
}

// ReplaceForGroup atomically replaces the seating of every exam in the
// given group with the new assignments.
func (r *SeatingRepository) ReplaceForGroup(ctx context.Context, examIDs []string, seats []models.SeatAssignment) error {
	if len(examIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace seating: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	clear, args, err := sqlx.In("DELETE FROM seat_assignments WHERE exam_id IN (?)", examIDs)
	if err != nil {
		return fmt.Errorf("build seating clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(clear), args...); err != nil {
		return fmt.Errorf("clear group seating: %w", err)
	}

	const insert = `INSERT INTO seat_assignments (id, exam_id, student_id, seat_row, seat_col, created_at)
        VALUES (:id, :exam_id, :student_id, :seat_row, :seat_col, :created_at)`
	now := time.Now().UTC()
	for i := range seats {
		if seats[i].ID == "" {
			seats[i].ID = uuid.NewString()
		}
		if seats[i].CreatedAt.IsZero() {
			seats[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, seats[i]); err != nil {
			return fmt.Errorf("insert seat assignment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace seating: %w", err)
	}
	return nil
}
