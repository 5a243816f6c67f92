package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniexam/exam-scheduler-api/internal/dto"
	"github.com/uniexam/exam-scheduler-api/internal/models"
	"github.com/uniexam/exam-scheduler-api/pkg/config"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
)

func TestSeatingSeatsEveryStudentOnValidCoordinates(t *testing.T) {
	fixture := newSeatingFixture()
	fixture.group = []models.ExamDetail{examDetailFixture("e1", "room-a")}
	fixture.rooms["room-a"] = seatingRoomFixture("room-a", "A-101", 40, 10, 4, 4)
	fixture.enrollments = enrollmentFixtures(30)

	seed := int64(7)
	resp, err := fixture.build().Generate(context.Background(), seatingRequest(&seed))
	require.NoError(t, err)

	assert.Equal(t, 30, resp.Assigned)
	require.Len(t, resp.Rooms, 1)
	require.Len(t, resp.Rooms[0].Seats, 30)
	seen := map[string]bool{}
	for _, seat := range resp.Rooms[0].Seats {
		assert.GreaterOrEqual(t, seat.SeatRow, 1)
		assert.LessOrEqual(t, seat.SeatRow, 10)
		// Group of four keeps only the outer cluster seats, columns
		// 4c+1 and 4c+4.
		rem := seat.SeatCol % 4
		assert.Contains(t, []int{0, 1}, rem)
		key := fmt.Sprintf("%d:%d", seat.SeatRow, seat.SeatCol)
		assert.False(t, seen[key], "seat %s assigned twice", key)
		seen[key] = true
	}
	assert.Len(t, fixture.seats.replaced, 30)
	assert.Equal(t, []string{"e1"}, fixture.seats.examIDs)
}

func TestSeatingCapacityShortageLeavesStoredPlanUntouched(t *testing.T) {
	fixture := newSeatingFixture()
	fixture.group = []models.ExamDetail{examDetailFixture("e1", "room-a")}
	fixture.rooms["room-a"] = seatingRoomFixture("room-a", "A-101", 40, 10, 4, 4)
	fixture.enrollments = enrollmentFixtures(45)

	_, err := fixture.build().Generate(context.Background(), seatingRequest(nil))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCapacityShortage.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "short by 5")
	assert.False(t, fixture.seats.replaceCalled)
}

func TestSeatingFillsRoomsInGroupOrder(t *testing.T) {
	fixture := newSeatingFixture()
	fixture.group = []models.ExamDetail{
		examDetailFixture("e1", "room-a"),
		examDetailFixture("e2", "room-b"),
	}
	fixture.rooms["room-a"] = seatingRoomFixture("room-a", "A-101", 30, 10, 4, 4)
	fixture.rooms["room-b"] = seatingRoomFixture("room-b", "A-102", 30, 10, 4, 4)
	fixture.enrollments = enrollmentFixtures(50)

	seed := int64(11)
	resp, err := fixture.build().Generate(context.Background(), seatingRequest(&seed))
	require.NoError(t, err)

	require.Len(t, resp.Rooms, 2)
	assert.Len(t, resp.Rooms[0].Seats, 30)
	assert.Len(t, resp.Rooms[1].Seats, 20)
	assert.Equal(t, 50, resp.Assigned)
	assert.Equal(t, []string{"e1", "e2"}, fixture.seats.examIDs)

	placed := map[string]bool{}
	for _, seat := range fixture.seats.replaced {
		assert.False(t, placed[seat.StudentID], "student %s seated twice", seat.StudentID)
		placed[seat.StudentID] = true
	}
	assert.Len(t, placed, 50)
}

func TestSeatingCapacityCapsBelowGeometry(t *testing.T) {
	fixture := newSeatingFixture()
	fixture.group = []models.ExamDetail{examDetailFixture("e1", "room-a")}
	// 10x4 with group 4 enumerates 80 coordinates but the room only
	// admits 25 students.
	fixture.rooms["room-a"] = seatingRoomFixture("room-a", "A-101", 25, 10, 4, 4)
	fixture.enrollments = enrollmentFixtures(25)

	seed := int64(3)
	resp, err := fixture.build().Generate(context.Background(), seatingRequest(&seed))
	require.NoError(t, err)
	assert.Len(t, resp.Rooms[0].Seats, 25)
}

func TestSeatingFixedSeedIsReproducible(t *testing.T) {
	run := func() []models.SeatAssignment {
		fixture := newSeatingFixture()
		fixture.group = []models.ExamDetail{examDetailFixture("e1", "room-a")}
		fixture.rooms["room-a"] = seatingRoomFixture("room-a", "A-101", 40, 10, 4, 3)
		fixture.enrollments = enrollmentFixtures(20)
		seed := int64(42)
		_, err := fixture.build().Generate(context.Background(), seatingRequest(&seed))
		require.NoError(t, err)
		return fixture.seats.replaced
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].StudentID, second[i].StudentID)
		assert.Equal(t, first[i].SeatRow, second[i].SeatRow)
		assert.Equal(t, first[i].SeatCol, second[i].SeatCol)
	}
}

func TestSeatingUnknownGroupReturnsNotFound(t *testing.T) {
	fixture := newSeatingFixture()
	_, err := fixture.build().Generate(context.Background(), seatingRequest(nil))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPlanReturnsStoredSeats(t *testing.T) {
	fixture := newSeatingFixture()
	fixture.group = []models.ExamDetail{examDetailFixture("e1", "room-a")}
	fixture.rooms["room-a"] = seatingRoomFixture("room-a", "A-101", 40, 10, 4, 4)
	fixture.seats.stored = map[string][]models.SeatAssignmentDetail{
		"e1": {
			{SeatAssignment: models.SeatAssignment{ExamID: "e1", StudentID: "s1", SeatRow: 2, SeatCol: 5}, StudentNumber: "20260001", StudentName: "First Student"},
		},
	}

	plans, err := fixture.build().Plan(context.Background(), "midterm", "c1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Len(t, plans[0].Seats, 1)
	assert.Equal(t, "A-101", plans[0].ClassroomCode)
	assert.Equal(t, "20260001", plans[0].Seats[0].StudentNumber)
	assert.Equal(t, 2, plans[0].Seats[0].SeatRow)
}

func TestEnumerateSeats(t *testing.T) {
	assert.Len(t, enumerateSeats(5, 3, 2), 15)
	assert.Len(t, enumerateSeats(5, 3, 3), 30)
	assert.Len(t, enumerateSeats(10, 4, 4), 80)
	assert.Nil(t, enumerateSeats(10, 4, 5))

	for _, coord := range enumerateSeats(2, 2, 3) {
		offset := (coord.col-1)%3 + 1
		assert.Contains(t, []int{1, 3}, offset)
	}
}

// --- Fixtures ---

type seatingFixture struct {
	group       []models.ExamDetail
	rooms       map[string]*models.Classroom
	enrollments []models.EnrollmentDetail
	seats       *seatingWriterStub
}

func newSeatingFixture() *seatingFixture {
	return &seatingFixture{
		rooms: map[string]*models.Classroom{},
		seats: &seatingWriterStub{},
	}
}

func (f *seatingFixture) build() *SeatingService {
	return NewSeatingService(
		seatingExamReaderStub{group: f.group},
		seatingClassroomReaderStub{rooms: f.rooms},
		seatingRosterReaderStub{items: f.enrollments},
		f.seats,
		nil,
		nil,
		nil,
		config.SeatingConfig{},
	)
}

func seatingRequest(seed *int64) dto.GenerateSeatingRequest {
	return dto.GenerateSeatingRequest{CourseID: "c1", Category: "midterm", Seed: seed}
}

func examDetailFixture(examID, classroomID string) models.ExamDetail {
	return models.ExamDetail{
		Exam: models.Exam{
			ID:          examID,
			Category:    "midterm",
			CourseID:    "c1",
			ClassroomID: classroomID,
			ExamDate:    time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
			StartMinute: 540,
		},
	}
}

func seatingRoomFixture(id, code string, capacity, rows, columns, group int) *models.Classroom {
	return &models.Classroom{ID: id, Code: code, Name: code, Capacity: capacity, Rows: rows, Columns: columns, SeatGroup: group}
}

func enrollmentFixtures(n int) []models.EnrollmentDetail {
	items := make([]models.EnrollmentDetail, n)
	for i := range items {
		items[i] = models.EnrollmentDetail{
			Enrollment:    models.Enrollment{ID: fmt.Sprintf("en%d", i), CourseID: "c1", StudentID: fmt.Sprintf("s%d", i)},
			StudentNumber: fmt.Sprintf("2026%04d", i),
			StudentName:   fmt.Sprintf("Student %d", i),
		}
	}
	return items
}

type seatingExamReaderStub struct {
	group []models.ExamDetail
}

func (s seatingExamReaderStub) ListGroup(_ context.Context, _, _ string) ([]models.ExamDetail, error) {
	return s.group, nil
}

type seatingClassroomReaderStub struct {
	rooms map[string]*models.Classroom
}

func (s seatingClassroomReaderStub) FindByID(_ context.Context, id string) (*models.Classroom, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return room, nil
}

type seatingRosterReaderStub struct {
	items []models.EnrollmentDetail
}

func (s seatingRosterReaderStub) ListByCourse(_ context.Context, _ string) ([]models.EnrollmentDetail, error) {
	return s.items, nil
}

type seatingWriterStub struct {
	replaceCalled bool
	examIDs       []string
	replaced      []models.SeatAssignment
	stored        map[string][]models.SeatAssignmentDetail
}

func (s *seatingWriterStub) ReplaceForGroup(_ context.Context, examIDs []string, seats []models.SeatAssignment) error {
	s.replaceCalled = true
	s.examIDs = examIDs
	s.replaced = seats
	return nil
}

func (s *seatingWriterStub) ListByExam(_ context.Context, examID string) ([]models.SeatAssignmentDetail, error) {
	return s.stored[examID], nil
}
