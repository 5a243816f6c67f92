package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uniexam/exam-scheduler-api/internal/models"
	"github.com/uniexam/exam-scheduler-api/pkg/export"
	"github.com/uniexam/exam-scheduler-api/pkg/storage"
)

type exportExamReader interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error)
	ListGroup(ctx context.Context, category, courseID string) ([]models.ExamDetail, error)
}

type exportSeatingReader interface {
	ListByExam(ctx context.Context, examID string) ([]models.SeatAssignmentDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderSections(title string, info [][2]string, sections []export.Section) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
	RenderSheets(sheets map[string]export.Dataset, order []string) ([]byte, error)
}

// ExportService builds timetable and seating chart datasets and persists
// rendered files with signed download tokens.
type ExportService struct {
	exams   exportExamReader
	seating exportSeatingReader
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	xlsx    xlsxRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	exams exportExamReader,
	seating exportSeatingReader,
	fileStore fileStorage,
	signer *storage.SignedURLSigner,
	cfg ExportConfig,
	logger *zap.Logger,
	csv csvRenderer,
	pdf pdfRenderer,
	xlsx xlsxRenderer,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		exams:   exams,
		seating: seating,
		storage: fileStore,
		csv:     csv,
		pdf:     pdf,
		xlsx:    xlsx,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}

	var payload []byte
	var err error
	switch job.Type {
	case models.ReportTypeTimetable:
		payload, err = s.renderTimetable(ctx, job.Params)
	case models.ReportTypeSeating:
		payload, err = s.renderSeating(ctx, job.Params)
	default:
		err = fmt.Errorf("unsupported report type %s", job.Type)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) renderTimetable(ctx context.Context, params models.ReportJobParams) ([]byte, error) {
	var exams []models.ExamDetail
	for page := 1; ; page++ {
		batch, total, err := s.exams.List(ctx, models.ExamFilter{Category: params.Category, Page: page, PageSize: 200})
		if err != nil {
			return nil, err
		}
		exams = append(exams, batch...)
		if len(batch) == 0 || len(exams) >= total {
			break
		}
	}
	dataset := timetableDataset(exams)
	title := fmt.Sprintf("Exam Timetable %s", params.Category)

	switch params.Format {
	case models.ReportFormatCSV:
		return s.csv.Render(dataset)
	case models.ReportFormatXLSX:
		return s.xlsx.Render(dataset, "Timetable")
	case models.ReportFormatPDF:
		return s.pdf.Render(dataset, title)
	default:
		return nil, fmt.Errorf("unsupported format %s", params.Format)
	}
}

func (s *ExportService) renderSeating(ctx context.Context, params models.ReportJobParams) ([]byte, error) {
	if params.CourseID == nil || *params.CourseID == "" {
		return nil, fmt.Errorf("seating export requires a course")
	}
	group, err := s.exams.ListGroup(ctx, params.Category, *params.CourseID)
	if err != nil {
		return nil, err
	}
	if len(group) == 0 {
		return nil, fmt.Errorf("no scheduled exam for course %s in category %s", *params.CourseID, params.Category)
	}

	sections := make([]export.Section, 0, len(group))
	sheets := make(map[string]export.Dataset, len(group))
	order := make([]string, 0, len(group))
	for _, exam := range group {
		seats, err := s.seating.ListByExam(ctx, exam.ID)
		if err != nil {
			return nil, err
		}
		dataset := seatingDataset(seats)
		subtitle := fmt.Sprintf("%s  %s, %d seated", exam.ExamDate.Format(dateLayout), minutesToClock(exam.StartMinute), len(seats))
		sections = append(sections, export.Section{
			Heading:  exam.ClassroomCode,
			Subtitle: subtitle,
			Data:     dataset,
		})
		sheets[exam.ClassroomCode] = dataset
		order = append(order, exam.ClassroomCode)
	}

	head := group[0]
	title := fmt.Sprintf("Seating Chart %s", head.CourseCode)

	switch params.Format {
	case models.ReportFormatCSV:
		return s.csv.Render(flattenSeatingSections(sections))
	case models.ReportFormatXLSX:
		return s.xlsx.RenderSheets(sheets, order)
	case models.ReportFormatPDF:
		info := [][2]string{
			{"Course", fmt.Sprintf("%s %s", head.CourseCode, head.CourseName)},
			{"Category", params.Category},
			{"Date", head.ExamDate.Format(dateLayout)},
			{"Start", minutesToClock(head.StartMinute)},
			{"Rooms", fmt.Sprintf("%d", len(group))},
		}
		return s.pdf.RenderSections(title, info, sections)
	default:
		return nil, fmt.Errorf("unsupported format %s", params.Format)
	}
}

func timetableDataset(exams []models.ExamDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(exams))
	for _, exam := range exams {
		rows = append(rows, map[string]string{
			"Date":        exam.ExamDate.Format(dateLayout),
			"Start":       minutesToClock(exam.StartMinute),
			"End":         minutesToClock(exam.StartMinute + exam.DurationMinutes),
			"Course Code": exam.CourseCode,
			"Course Name": exam.CourseName,
			"Year":        fmt.Sprintf("%d", exam.CourseYear),
			"Room":        exam.ClassroomCode,
			"In Room":     fmt.Sprintf("%d", exam.StudentsInRoom),
			"Enrolled":    fmt.Sprintf("%d", exam.TotalStudents),
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Start", "End", "Course Code", "Course Name", "Year", "Room", "In Room", "Enrolled"},
		Rows:    rows,
	}
}

func seatingDataset(seats []models.SeatAssignmentDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(seats))
	for _, seat := range seats {
		rows = append(rows, map[string]string{
			"Row":     fmt.Sprintf("%d", seat.SeatRow),
			"Column":  fmt.Sprintf("%d", seat.SeatCol),
			"Number":  seat.StudentNumber,
			"Student": seat.StudentName,
		})
	}
	return export.Dataset{
		Headers: []string{"Row", "Column", "Number", "Student"},
		Rows:    rows,
	}
}

func flattenSeatingSections(sections []export.Section) export.Dataset {
	headers := []string{"Room", "Row", "Column", "Number", "Student"}
	var rows []map[string]string
	for _, section := range sections {
		for _, row := range section.Data.Rows {
			flat := map[string]string{"Room": section.Heading}
			for k, v := range row {
				flat[k] = v
			}
			rows = append(rows, flat)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	categoryPart := sanitizeFilename(job.Params.Category)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), categoryPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
