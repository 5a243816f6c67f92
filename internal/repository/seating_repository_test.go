package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniexam/exam-scheduler-api/internal/models"
)

func TestReplaceForGroup(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM seat_assignments WHERE exam_id IN").
		WithArgs("e1", "e2").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO seat_assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO seat_assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	seats := []models.SeatAssignment{
		{ExamID: "e1", StudentID: "s1", SeatRow: 1, SeatCol: 2},
		{ExamID: "e2", StudentID: "s2", SeatRow: 1, SeatCol: 1},
	}
	err := repo.ReplaceForGroup(context.Background(), []string{"e1", "e2"}, seats)
	require.NoError(t, err)
	assert.NotEmpty(t, seats[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForGroupNoExams(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	err := repo.ReplaceForGroup(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
