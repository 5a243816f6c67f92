package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/uniexam/exam-scheduler-api/internal/dto"
	"github.com/uniexam/exam-scheduler-api/internal/models"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
)

type rosterStudentStore interface {
	FindByNumber(ctx context.Context, number string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type rosterEnrollmentStore interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type rosterCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

// rosterColumns maps a semantic column role to its index in the sheet.
type rosterColumns struct {
	number int
	name   int
	year   int
}

// rosterHeaderAliases maps canonical roster columns to accepted header
// spellings (lowercase).
var rosterHeaderAliases = map[string][]string{
	"number": {"number", "no", "student number", "student no", "registration", "registration number", "reg no", "id"},
	"name":   {"name", "full name", "student", "student name"},
	"year":   {"year", "year level", "grade", "class year"},
}

// RosterImportService ingests student rosters from uploaded XLSX or CSV
// files and enrolls the students into a course.
type RosterImportService struct {
	students    rosterStudentStore
	enrollments rosterEnrollmentStore
	courses     rosterCourseReader
	logger      *zap.Logger
}

// NewRosterImportService wires roster import dependencies.
func NewRosterImportService(students rosterStudentStore, enrollments rosterEnrollmentStore, courses rosterCourseReader, logger *zap.Logger) *RosterImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterImportService{students: students, enrollments: enrollments, courses: courses, logger: logger}
}

// ImportXLSX reads the first sheet of an XLSX roster and enrolls every row
// into the course.
func (s *RosterImportService) ImportXLSX(ctx context.Context, courseID string, payload []byte) (*dto.RosterImportResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is not a readable XLSX workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot read workbook rows")
	}
	return s.importRows(ctx, courseID, rows)
}

// ImportCSV reads a comma-separated roster and enrolls every row into the
// course.
func (s *RosterImportService) ImportCSV(ctx context.Context, courseID string, payload []byte) (*dto.RosterImportResult, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is not readable CSV")
	}
	return s.importRows(ctx, courseID, rows)
}

func (s *RosterImportService) importRows(ctx context.Context, courseID string, rows [][]string) (*dto.RosterImportResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster file is empty")
	}

	columns, hasHeader := detectRosterColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
	}

	result := &dto.RosterImportResult{}
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if emptyRow(row) {
			continue
		}
		number := cellAt(row, columns.number)
		name := cellAt(row, columns.name)
		if number == "" || name == "" {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: missing student number or name", i+1))
			continue
		}
		year := course.Year
		if raw := cellAt(row, columns.year); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 6 {
				result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: invalid year %q, using course year", i+1, raw))
			} else {
				year = parsed
			}
		}

		student, err := s.upsertStudent(ctx, number, name, course.DepartmentID, year, result)
		if err != nil {
			return nil, err
		}

		enrolled, err := s.enrollments.Exists(ctx, student.ID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if enrolled {
			continue
		}
		if err := s.enrollments.Create(ctx, &models.Enrollment{StudentID: student.ID, CourseID: courseID}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
		result.EnrollmentsCreated++
	}

	s.logger.Info("roster imported",
		zap.String("course", course.Code),
		zap.Int("studentsCreated", result.StudentsCreated),
		zap.Int("enrollmentsCreated", result.EnrollmentsCreated),
		zap.Int("rowsSkipped", result.RowsSkipped))
	return result, nil
}

func (s *RosterImportService) upsertStudent(ctx context.Context, number, name, departmentID string, year int, result *dto.RosterImportResult) (*models.Student, error) {
	student, err := s.students.FindByNumber(ctx, number)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
		}
		student = &models.Student{
			Number:       number,
			FullName:     name,
			DepartmentID: departmentID,
			Year:         year,
		}
		if err := s.students.Create(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		result.StudentsCreated++
		return student, nil
	}
	if student.FullName != name || student.Year != year {
		student.FullName = name
		student.Year = year
		if err := s.students.Update(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
		}
		result.StudentsUpdated++
	}
	return student, nil
}

// detectRosterColumns matches the first row against known header aliases.
// Without a recognizable header the columns are positional: number, name,
// year.
func detectRosterColumns(row []string) (rosterColumns, bool) {
	columns := rosterColumns{number: -1, name: -1, year: -1}
	found := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range rosterHeaderAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				found = true
				switch role {
				case "number":
					if columns.number == -1 {
						columns.number = i
					}
				case "name":
					if columns.name == -1 {
						columns.name = i
					}
				case "year":
					if columns.year == -1 {
						columns.year = i
					}
				}
			}
		}
	}
	if !found {
		return rosterColumns{number: 0, name: 1, year: 2}, false
	}
	return columns, true
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
