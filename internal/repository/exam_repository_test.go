package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniexam/exam-scheduler-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestReplaceCategoryClearsOldRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM seat_assignments WHERE exam_id IN").
		WithArgs("midterm-2026").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM exams WHERE category").
		WithArgs("midterm-2026").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO exams").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	exams := []models.Exam{{
		Category:        "midterm-2026",
		CourseID:        "course-1",
		ClassroomID:     "room-1",
		ExamDate:        time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
		StartMinute:     540,
		DurationMinutes: 75,
		BreakMinutes:    15,
		StudentsInRoom:  40,
		TotalStudents:   40,
	}}
	err := repo.ReplaceCategory(context.Background(), "midterm-2026", exams)
	require.NoError(t, err)
	assert.NotEmpty(t, exams[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM seat_assignments WHERE exam_id IN").
		WithArgs("final-2026").
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM exams WHERE category").
		WithArgs("final-2026").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	affected, err := repo.DeleteCategory(context.Background(), "final-2026")
	require.NoError(t, err)
	assert.EqualValues(t, 4, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGroup(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "category", "course_id", "classroom_id", "exam_date", "start_minute",
		"duration_minutes", "break_minutes", "students_in_room", "total_students", "created_at",
		"course_code", "course_name", "course_year", "instructor", "classroom_code", "classroom_name",
	}).AddRow("e1", "midterm-2026", "course-1", "room-1", now, 540, 75, 15, 40, 55, now,
		"MAT101", "Calculus I", 1, "Dr. Oz", "A-101", "Main Hall").
		AddRow("e2", "midterm-2026", "course-1", "room-2", now, 540, 75, 15, 15, 55, now,
			"MAT101", "Calculus I", 1, "Dr. Oz", "A-102", "Annex")
	mock.ExpectQuery("SELECT .* FROM exams e").
		WithArgs("midterm-2026", "course-1").
		WillReturnRows(rows)

	exams, err := repo.ListGroup(context.Background(), "midterm-2026", "course-1")
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "A-101", exams[0].ClassroomCode)
	assert.Equal(t, 55, exams[0].TotalStudents)
	assert.NoError(t, mock.ExpectationsWereMet())
}
