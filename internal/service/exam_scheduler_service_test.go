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

func TestGenerateSplitsAcrossRoomsByDescendingCapacity(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{
		courseFixture("c1", "MAT101", 1, 50),
	}
	fixture.rooms = []models.Classroom{
		roomFixture("a", "A-101", 30),
		roomFixture("b", "A-102", 30),
	}
	fixture.roster = map[string][]string{"c1": studentIDs("c1", 50)}

	service := fixture.build()
	resp, err := service.Generate(context.Background(), fixture.request("midterm", "2026-04-06", "2026-04-10"))
	require.NoError(t, err)

	require.Len(t, resp.Slots, 2)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, 30, resp.Slots[0].StudentsInRoom)
	assert.Equal(t, 20, resp.Slots[1].StudentsInRoom)
	assert.Equal(t, 50, resp.Slots[0].TotalStudents)
	assert.Equal(t, resp.Slots[0].StartTime, resp.Slots[1].StartTime)
}

func TestGenerateSharedStudentPushesSecondCourseLater(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{
		courseFixture("c1", "MAT101", 1, 2),
		courseFixture("c2", "FIZ101", 1, 1),
	}
	fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
	fixture.roster = map[string][]string{
		"c1": {"s1", "s2"},
		"c2": {"s1"},
	}

	service := fixture.build()
	req := fixture.request("midterm", "2026-04-06", "2026-04-06")
	duration := 60
	req.DurationMinutes = &duration
	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)

	// The first exam books the room and its students for
	// [09:00, 10:15) including the break, so the second course cannot
	// start before 10:15 on the only eligible day.
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, "09:00", resp.Slots[0].StartTime)
	assert.Equal(t, "10:15", resp.Slots[1].StartTime)
}

func TestGenerateDefaultBreakAppliesWithZeroConfig(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{courseFixture("c1", "MAT101", 1, 10)}
	fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
	fixture.roster = map[string][]string{"c1": studentIDs("c1", 10)}

	service := fixture.build()
	resp, err := service.Generate(context.Background(), fixture.request("midterm", "2026-04-06", "2026-04-06"))
	require.NoError(t, err)

	require.Len(t, resp.Slots, 1)
	require.Len(t, fixture.exams.replaced, 1)
	assert.Equal(t, 15, fixture.exams.replaced[0].BreakMinutes)
}

func TestGenerateExplicitZeroBreakOverridesDefault(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{
		courseFixture("c1", "MAT101", 1, 2),
		courseFixture("c2", "FIZ101", 1, 1),
	}
	fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
	fixture.roster = map[string][]string{
		"c1": {"s1", "s2"},
		"c2": {"s1"},
	}

	service := fixture.build()
	req := fixture.request("midterm", "2026-04-06", "2026-04-06")
	duration := 60
	noBreak := 0
	req.DurationMinutes = &duration
	req.BreakMinutes = &noBreak

	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Slots, 2)
	assert.Equal(t, "10:00", resp.Slots[1].StartTime)
}

func TestGenerateHonoursYearDailyQuota(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{
		courseFixture("c1", "MAT101", 1, 10),
		courseFixture("c2", "FIZ101", 1, 10),
		courseFixture("c3", "KIM101", 1, 10),
	}
	fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
	fixture.roster = map[string][]string{
		"c1": studentIDs("c1", 10),
		"c2": studentIDs("c2", 10),
		"c3": studentIDs("c3", 10),
	}

	service := fixture.build()
	resp, err := service.Generate(context.Background(), fixture.request("midterm", "2026-04-06", "2026-04-07"))
	require.NoError(t, err)
	require.Empty(t, resp.Errors)

	perDay := map[string]int{}
	for _, slot := range resp.Slots {
		perDay[slot.Date]++
	}
	for day, count := range perDay {
		assert.LessOrEqual(t, count, 2, "more than two year-1 exams on %s", day)
	}
	assert.Equal(t, 2, perDay["2026-04-06"])
	assert.Equal(t, 1, perDay["2026-04-07"])
}

func TestGenerateNoOverlapSerializesAllExams(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{
		courseFixture("c1", "MAT101", 1, 10),
		courseFixture("c2", "BIL201", 2, 10),
	}
	fixture.rooms = []models.Classroom{
		roomFixture("a", "A-101", 40),
		roomFixture("b", "A-102", 40),
	}
	fixture.roster = map[string][]string{
		"c1": studentIDs("c1", 10),
		"c2": studentIDs("c2", 10),
	}

	service := fixture.build()
	req := fixture.request("midterm", "2026-04-06", "2026-04-06")
	req.NoOverlap = true
	resp, err := service.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Slots, 2)
	assert.NotEqual(t, resp.Slots[0].StartTime, resp.Slots[1].StartTime)
}

func TestGenerateReportsInfeasibleCourseAndContinues(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{
		courseFixture("c1", "MAT101", 1, 100),
		courseFixture("c2", "FIZ101", 1, 10),
	}
	fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
	fixture.roster = map[string][]string{
		"c1": studentIDs("c1", 100),
		"c2": studentIDs("c2", 10),
	}

	service := fixture.build()
	resp, err := service.Generate(context.Background(), fixture.request("midterm", "2026-04-06", "2026-04-10"))
	require.NoError(t, err)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "MAT101", resp.Errors[0].CourseCode)
	assert.Equal(t, 100, resp.Errors[0].Enrollment)
	assert.Equal(t, 40, resp.Errors[0].TotalCapacity)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "FIZ101", resp.Slots[0].CourseCode)
}

func TestGenerateSkipsWeekendsByDefault(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{courseFixture("c1", "MAT101", 1, 10)}
	fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
	fixture.roster = map[string][]string{"c1": studentIDs("c1", 10)}

	service := fixture.build()
	// 2026-04-04 is a Saturday, 2026-04-05 a Sunday.
	resp, err := service.Generate(context.Background(), fixture.request("midterm", "2026-04-04", "2026-04-06"))
	require.NoError(t, err)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "2026-04-06", resp.Slots[0].Date)
}

func TestGenerateRejectsInvertedDateRange(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{courseFixture("c1", "MAT101", 1, 10)}
	service := fixture.build()
	_, err := service.Generate(context.Background(), fixture.request("midterm", "2026-04-10", "2026-04-06"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateRejectsEmptyCourseSelection(t *testing.T) {
	fixture := newSchedulerFixture()
	fixture.courses = []models.CourseDetail{courseFixture("c1", "MAT101", 1, 10)}
	fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
	fixture.roster = map[string][]string{"c1": studentIDs("c1", 10)}
	service := fixture.build()

	req := fixture.request("midterm", "2026-04-06", "2026-04-10")
	req.CourseIDs = nil

	_, err := service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fixture.exams.category, "a rejected request must not touch the stored schedule")
}

func TestGenerateNeverDoubleBooksRoomOrStudent(t *testing.T) {
	fixture := newSchedulerFixture()
	for i := 0; i < 8; i++ {
		code := fmt.Sprintf("CRS%02d", i)
		id := fmt.Sprintf("c%d", i)
		fixture.courses = append(fixture.courses, courseFixture(id, code, 1+i%3, 15+i))
		fixture.roster[id] = studentIDs(id, 15+i)
	}
	fixture.rooms = []models.Classroom{
		roomFixture("a", "A-101", 25),
		roomFixture("b", "A-102", 20),
	}

	service := fixture.build()
	resp, err := service.Generate(context.Background(), fixture.request("midterm", "2026-04-06", "2026-04-17"))
	require.NoError(t, err)
	require.Empty(t, resp.Errors)

	type booking struct{ start, end int }
	perRoomDay := map[string][]booking{}
	for _, exam := range fixture.exams.replaced {
		key := exam.ClassroomID + exam.ExamDate.Format("2006-01-02")
		b := booking{exam.StartMinute, exam.EndMinute()}
		for _, other := range perRoomDay[key] {
			assert.False(t, b.start < other.end && other.start < b.end,
				"room %s double booked", exam.ClassroomID)
		}
		perRoomDay[key] = append(perRoomDay[key], b)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	build := func() *dto.GenerateExamScheduleResponse {
		fixture := newSchedulerFixture()
		fixture.courses = []models.CourseDetail{
			courseFixture("c1", "MAT101", 1, 30),
			courseFixture("c2", "FIZ101", 2, 20),
			courseFixture("c3", "KIM101", 1, 25),
		}
		fixture.rooms = []models.Classroom{roomFixture("a", "A-101", 40)}
		fixture.roster = map[string][]string{
			"c1": studentIDs("c1", 30),
			"c2": studentIDs("c2", 20),
			"c3": studentIDs("c3", 25),
		}
		resp, err := fixture.build().Generate(context.Background(), fixture.request("midterm", "2026-04-06", "2026-04-10"))
		require.NoError(t, err)
		return resp
	}

	first := build()
	second := build()
	require.Equal(t, len(first.Slots), len(second.Slots))
	for i := range first.Slots {
		assert.Equal(t, first.Slots[i].CourseCode, second.Slots[i].CourseCode)
		assert.Equal(t, first.Slots[i].Date, second.Slots[i].Date)
		assert.Equal(t, first.Slots[i].StartTime, second.Slots[i].StartTime)
	}
}

func TestEligibleDatesExcludesRequestedDays(t *testing.T) {
	start := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	dates := eligibleDates(start, end, false, map[string]bool{"2026-04-08": true})
	require.Len(t, dates, 4)
	for _, d := range dates {
		assert.NotEqual(t, "2026-04-08", d.Format("2006-01-02"))
	}
}

func TestAllocateRoomsInsufficientCapacity(t *testing.T) {
	rooms := []models.Classroom{roomFixture("a", "A-101", 30)}
	assert.Nil(t, allocateRooms(rooms, 31))
	fills := allocateRooms(rooms, 30)
	require.Len(t, fills, 1)
	assert.Equal(t, 30, fills[0].count)
}

// --- Fixtures ---

type schedulerFixture struct {
	courses []models.CourseDetail
	rooms   []models.Classroom
	roster  map[string][]string
	exams   *examWriterStub
}

func newSchedulerFixture() *schedulerFixture {
	return &schedulerFixture{
		roster: map[string][]string{},
		exams:  &examWriterStub{},
	}
}

func (f *schedulerFixture) build() *ExamSchedulerService {
	return NewExamSchedulerService(
		courseReaderStub{items: f.courses},
		classroomReaderStub{items: f.rooms},
		enrollmentReaderStub{items: f.roster},
		f.exams,
		nil,
		nil,
		nil,
		nil,
		config.SchedulerConfig{},
	)
}

func (f *schedulerFixture) request(category, start, end string) dto.GenerateExamScheduleRequest {
	courseIDs := make([]string, 0, len(f.courses))
	for _, c := range f.courses {
		courseIDs = append(courseIDs, c.ID)
	}
	return dto.GenerateExamScheduleRequest{
		Category:  category,
		StartDate: start,
		EndDate:   end,
		CourseIDs: courseIDs,
	}
}

func courseFixture(id, code string, year, enrollment int) models.CourseDetail {
	return models.CourseDetail{
		Course:          models.Course{ID: id, Code: code, Name: code + " Course", Year: year},
		EnrollmentCount: enrollment,
	}
}

func roomFixture(id, code string, capacity int) models.Classroom {
	return models.Classroom{ID: id, Code: code, Name: code, Capacity: capacity, Rows: 10, Columns: 4, SeatGroup: 4}
}

func studentIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-s%d", prefix, i)
	}
	return ids
}

type courseReaderStub struct {
	items []models.CourseDetail
}

func (s courseReaderStub) ListByIDs(_ context.Context, _ []string) ([]models.CourseDetail, error) {
	return s.items, nil
}

type classroomReaderStub struct {
	items []models.Classroom
}

func (s classroomReaderStub) ListByIDs(_ context.Context, _ []string) ([]models.Classroom, error) {
	return s.items, nil
}

type enrollmentReaderStub struct {
	items map[string][]string
}

func (s enrollmentReaderStub) StudentIDsByCourse(_ context.Context, _ []string) (map[string][]string, error) {
	return s.items, nil
}

type examWriterStub struct {
	replaced []models.Exam
	category string
	deleted  []string
}

func (s *examWriterStub) ReplaceCategory(_ context.Context, category string, exams []models.Exam) error {
	s.category = category
	s.replaced = exams
	return nil
}

func (s *examWriterStub) List(_ context.Context, _ models.ExamFilter) ([]models.ExamDetail, int, error) {
	return nil, 0, nil
}

func (s *examWriterStub) DeleteCategory(_ context.Context, category string) (int64, error) {
	s.deleted = append(s.deleted, category)
	return int64(len(s.replaced)), nil
}
