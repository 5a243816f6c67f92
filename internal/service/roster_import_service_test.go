package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/uniexam/exam-scheduler-api/internal/models"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
)

func TestImportCSVCreatesStudentsAndEnrollments(t *testing.T) {
	service, stores := newRosterFixture()
	payload := []byte("Student No,Full Name,Year\n" +
		"20260001,Ada Yilmaz,1\n" +
		"20260002,Deniz Kaya,2\n")

	result, err := service.ImportCSV(context.Background(), "c1", payload)
	require.NoError(t, err)

	assert.Equal(t, 2, result.StudentsCreated)
	assert.Equal(t, 0, result.StudentsUpdated)
	assert.Equal(t, 2, result.EnrollmentsCreated)
	assert.Equal(t, 0, result.RowsSkipped)
	assert.Empty(t, result.Warnings)

	require.Len(t, stores.students.created, 2)
	assert.Equal(t, "Ada Yilmaz", stores.students.created[0].FullName)
	assert.Equal(t, 2, stores.students.created[1].Year)
	assert.Len(t, stores.enrollments.created, 2)
}

func TestImportCSVUpdatesExistingStudentAndSkipsDuplicateEnrollment(t *testing.T) {
	service, stores := newRosterFixture()
	stores.students.byNumber["20260001"] = &models.Student{
		ID: "s-existing", Number: "20260001", FullName: "Ada Y.", Year: 1,
	}
	stores.enrollments.existing["s-existing:c1"] = true
	payload := []byte("number,name,year\n20260001,Ada Yilmaz,1\n")

	result, err := service.ImportCSV(context.Background(), "c1", payload)
	require.NoError(t, err)

	assert.Equal(t, 0, result.StudentsCreated)
	assert.Equal(t, 1, result.StudentsUpdated)
	assert.Equal(t, 0, result.EnrollmentsCreated)
	require.Len(t, stores.students.updated, 1)
	assert.Equal(t, "Ada Yilmaz", stores.students.updated[0].FullName)
}

func TestImportCSVWithoutHeaderUsesPositionalColumns(t *testing.T) {
	service, stores := newRosterFixture()
	payload := []byte("20260001,Ada Yilmaz,1\n20260002,Deniz Kaya,2\n")

	result, err := service.ImportCSV(context.Background(), "c1", payload)
	require.NoError(t, err)
	assert.Equal(t, 2, result.StudentsCreated)
	assert.Len(t, stores.enrollments.created, 2)
}

func TestImportCSVSkipsBadRowsWithWarnings(t *testing.T) {
	service, _ := newRosterFixture()
	payload := []byte("number,name,year\n" +
		",Missing Number,1\n" +
		"20260003,,2\n" +
		"20260004,Bad Year,9\n" +
		"\n")

	result, err := service.ImportCSV(context.Background(), "c1", payload)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowsSkipped)
	assert.Equal(t, 1, result.StudentsCreated)
	require.Len(t, result.Warnings, 3)
	assert.Contains(t, result.Warnings[2], "invalid year")
}

func TestImportCSVBadYearFallsBackToCourseYear(t *testing.T) {
	service, stores := newRosterFixture()
	payload := []byte("number,name,year\n20260004,Bad Year,banana\n")

	_, err := service.ImportCSV(context.Background(), "c1", payload)
	require.NoError(t, err)
	require.Len(t, stores.students.created, 1)
	assert.Equal(t, 2, stores.students.created[0].Year)
}

func TestImportCSVUnknownCourse(t *testing.T) {
	service, _ := newRosterFixture()
	_, err := service.ImportCSV(context.Background(), "missing", []byte("number,name\n1,A\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestImportXLSXReadsFirstSheet(t *testing.T) {
	service, stores := newRosterFixture()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Registration Number", "Student Name", "Year"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"20260001", "Ada Yilmaz", 1}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"20260002", "Deniz Kaya", 2}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result, err := service.ImportXLSX(context.Background(), "c1", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, result.StudentsCreated)
	assert.Equal(t, 2, result.EnrollmentsCreated)
	require.Len(t, stores.students.created, 2)
	assert.Equal(t, "20260002", stores.students.created[1].Number)
}

func TestImportXLSXRejectsGarbage(t *testing.T) {
	service, _ := newRosterFixture()
	_, err := service.ImportXLSX(context.Background(), "c1", []byte("not a workbook"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDetectRosterColumns(t *testing.T) {
	columns, hasHeader := detectRosterColumns([]string{"Year", "Student No", "Full Name"})
	assert.True(t, hasHeader)
	assert.Equal(t, 1, columns.number)
	assert.Equal(t, 2, columns.name)
	assert.Equal(t, 0, columns.year)

	columns, hasHeader = detectRosterColumns([]string{"20260001", "Ada Yilmaz", "1"})
	assert.False(t, hasHeader)
	assert.Equal(t, 0, columns.number)
	assert.Equal(t, 1, columns.name)
	assert.Equal(t, 2, columns.year)
}

// --- Fixtures ---

type rosterStores struct {
	students    *rosterStudentStoreStub
	enrollments *rosterEnrollmentStoreStub
}

func newRosterFixture() (*RosterImportService, *rosterStores) {
	stores := &rosterStores{
		students: &rosterStudentStoreStub{byNumber: map[string]*models.Student{}},
		enrollments: &rosterEnrollmentStoreStub{
			existing: map[string]bool{},
		},
	}
	courses := rosterCourseReaderStub{
		byID: map[string]*models.CourseDetail{
			"c1": {Course: models.Course{ID: "c1", Code: "MAT201", Name: "Linear Algebra", DepartmentID: "d1", Year: 2}},
		},
	}
	service := NewRosterImportService(stores.students, stores.enrollments, courses, nil)
	return service, stores
}

type rosterStudentStoreStub struct {
	byNumber map[string]*models.Student
	created  []*models.Student
	updated  []*models.Student
}

func (s *rosterStudentStoreStub) FindByNumber(_ context.Context, number string) (*models.Student, error) {
	student, ok := s.byNumber[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (s *rosterStudentStoreStub) Create(_ context.Context, student *models.Student) error {
	student.ID = fmt.Sprintf("s-%d", len(s.created)+1)
	s.created = append(s.created, student)
	s.byNumber[student.Number] = student
	return nil
}

func (s *rosterStudentStoreStub) Update(_ context.Context, student *models.Student) error {
	s.updated = append(s.updated, student)
	return nil
}

type rosterEnrollmentStoreStub struct {
	existing map[string]bool
	created  []*models.Enrollment
}

func (s *rosterEnrollmentStoreStub) Exists(_ context.Context, studentID, courseID string) (bool, error) {
	return s.existing[studentID+":"+courseID], nil
}

func (s *rosterEnrollmentStoreStub) Create(_ context.Context, enrollment *models.Enrollment) error {
	s.created = append(s.created, enrollment)
	s.existing[enrollment.StudentID+":"+enrollment.CourseID] = true
	return nil
}

type rosterCourseReaderStub struct {
	byID map[string]*models.CourseDetail
}

func (s rosterCourseReaderStub) FindByID(_ context.Context, id string) (*models.CourseDetail, error) {
	course, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}
