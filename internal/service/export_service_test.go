package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniexam/exam-scheduler-api/internal/models"
	"github.com/uniexam/exam-scheduler-api/pkg/storage"
)

type exportExamReaderStub struct {
	exams    []models.ExamDetail
	requests []models.ExamFilter
}

func (s *exportExamReaderStub) List(_ context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error) {
	s.requests = append(s.requests, filter)
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(s.exams) {
		return nil, len(s.exams), nil
	}
	end := start + size
	if end > len(s.exams) {
		end = len(s.exams)
	}
	return s.exams[start:end], len(s.exams), nil
}

func (s *exportExamReaderStub) ListGroup(_ context.Context, _, _ string) ([]models.ExamDetail, error) {
	return nil, nil
}

type exportSeatingReaderStub struct{}

func (exportSeatingReaderStub) ListByExam(_ context.Context, _ string) ([]models.SeatAssignmentDetail, error) {
	return nil, nil
}

type fileStorageStub struct {
	saved map[string][]byte
}

func (s *fileStorageStub) Save(filename string, data []byte) (string, error) {
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[filename] = data
	return filename, nil
}

func (s *fileStorageStub) Open(_ string) (*os.File, error) { return nil, os.ErrNotExist }

func (s *fileStorageStub) Delete(_ string) error { return nil }

func (s *fileStorageStub) CleanupOlderThan(_ time.Duration) ([]string, error) { return nil, nil }

func timetableExamFixture(i int) models.ExamDetail {
	return models.ExamDetail{
		Exam: models.Exam{
			ID:              "e" + string(rune('a'+i%26)),
			CourseID:        "c1",
			ExamDate:        time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
			StartMinute:     540,
			DurationMinutes: 60,
			StudentsInRoom:  1,
			TotalStudents:   1,
		},
		CourseCode:    "MAT101",
		CourseName:    "Calculus",
		CourseYear:    1,
		ClassroomCode: "A-101",
	}
}

func TestTimetableExportPagesThroughEveryExam(t *testing.T) {
	reader := &exportExamReaderStub{}
	for i := 0; i < 250; i++ {
		reader.exams = append(reader.exams, timetableExamFixture(i))
	}
	store := &fileStorageStub{}
	signer := storage.NewSignedURLSigner("unit-test-secret", time.Hour)
	svc := NewExportService(reader, exportSeatingReaderStub{}, store, signer, ExportConfig{}, nil, nil, nil, nil)

	job := &models.ReportJob{
		ID:   "job-1",
		Type: models.ReportTypeTimetable,
		Params: models.ReportJobParams{
			Category: "midterm",
			Format:   models.ReportFormatCSV,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, store.saved, 1)

	var payload []byte
	for _, data := range store.saved {
		payload = data
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	assert.Len(t, lines, 251, "header plus one row per room sitting")

	require.Len(t, reader.requests, 2)
	assert.Equal(t, 1, reader.requests[0].Page)
	assert.Equal(t, 2, reader.requests[1].Page)
	assert.Equal(t, "midterm", reader.requests[0].Category)
	assert.NotEmpty(t, result.Token)
}
