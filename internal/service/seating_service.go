package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniexam/exam-scheduler-api/internal/dto"
	"github.com/uniexam/exam-scheduler-api/internal/models"
	"github.com/uniexam/exam-scheduler-api/pkg/config"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
)

// seatOffsets maps a seat group size to the valid in-cluster offsets.
// Group 2 keeps one aisle seat, groups 3 and 4 keep both outer seats so
// adjacent students always have an empty seat between them.
var seatOffsets = map[int][]int{
	2: {2},
	3: {1, 3},
	4: {1, 4},
}

type seatingExamReader interface {
	ListGroup(ctx context.Context, category, courseID string) ([]models.ExamDetail, error)
}

type seatingClassroomReader interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type seatingRosterReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type seatingWriter interface {
	ReplaceForGroup(ctx context.Context, examIDs []string, seats []models.SeatAssignment) error
	ListByExam(ctx context.Context, examID string) ([]models.SeatAssignmentDetail, error)
}

type seatingMetricsRecorder interface {
	RecordSeatingRun(assigned int)
}

// SeatingService places enrolled students on physical seats for every
// room of a scheduled exam group.
type SeatingService struct {
	exams      seatingExamReader
	classrooms seatingClassroomReader
	roster     seatingRosterReader
	seats      seatingWriter
	metrics    seatingMetricsRecorder
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        config.SeatingConfig
}

// NewSeatingService wires seating dependencies.
func NewSeatingService(
	exams seatingExamReader,
	classrooms seatingClassroomReader,
	roster seatingRosterReader,
	seats seatingWriter,
	metrics seatingMetricsRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.SeatingConfig,
) *SeatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatingService{
		exams:      exams,
		classrooms: classrooms,
		roster:     roster,
		seats:      seats,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds and persists a fresh seating plan for the exam group of
// one course within a category. Prior seat rows of the group are replaced
// atomically; a capacity shortage leaves the stored plan untouched.
func (s *SeatingService) Generate(ctx context.Context, req dto.GenerateSeatingRequest) (*dto.GenerateSeatingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seating payload")
	}

	group, err := s.exams.ListGroup(ctx, req.Category, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam group")
	}
	if len(group) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no scheduled exam found for this course and category")
	}

	rooms := make([]*models.Classroom, 0, len(group))
	totalCapacity := 0
	for _, exam := range group {
		room, err := s.classrooms.FindByID(ctx, exam.ClassroomID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
		}
		rooms = append(rooms, room)
		totalCapacity += room.Capacity
	}

	enrollments, err := s.roster.ListByCourse(ctx, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course roster")
	}
	if len(enrollments) > totalCapacity {
		shortfall := len(enrollments) - totalCapacity
		return nil, appErrors.Clone(appErrors.ErrCapacityShortage,
			fmt.Sprintf("room capacity %d cannot hold %d students, short by %d", totalCapacity, len(enrollments), shortfall))
	}

	rng := s.newRand(req.Seed)

	shuffled := make([]models.EnrollmentDetail, len(enrollments))
	copy(shuffled, enrollments)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	examIDs := make([]string, 0, len(group))
	var assignments []models.SeatAssignment
	plans := make([]dto.RoomPlanView, 0, len(group))
	next := 0
	for i, exam := range group {
		examIDs = append(examIDs, exam.ID)
		room := rooms[i]
		coords := enumerateSeats(room.Rows, room.Columns, room.SeatGroup)
		rng.Shuffle(len(coords), func(a, b int) {
			coords[a], coords[b] = coords[b], coords[a]
		})

		plan := dto.RoomPlanView{
			ExamID:        exam.ID,
			ClassroomID:   room.ID,
			ClassroomCode: room.Code,
			Capacity:      room.Capacity,
			Rows:          room.Rows,
			Columns:       room.Columns,
			SeatGroup:     room.SeatGroup,
		}
		placed := 0
		for _, coord := range coords {
			if placed >= room.Capacity || next >= len(shuffled) {
				break
			}
			student := shuffled[next]
			assignments = append(assignments, models.SeatAssignment{
				ExamID:    exam.ID,
				StudentID: student.StudentID,
				SeatRow:   coord.row,
				SeatCol:   coord.col,
			})
			plan.Seats = append(plan.Seats, dto.SeatView{
				StudentID:     student.StudentID,
				StudentNumber: student.StudentNumber,
				StudentName:   student.StudentName,
				SeatRow:       coord.row,
				SeatCol:       coord.col,
			})
			placed++
			next++
		}
		plans = append(plans, plan)
	}

	if err := s.seats.ReplaceForGroup(ctx, examIDs, assignments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist seating plan")
	}
	if s.metrics != nil {
		s.metrics.RecordSeatingRun(len(assignments))
	}
	s.logger.Info("seating plan generated",
		zap.String("category", req.Category),
		zap.String("course", req.CourseID),
		zap.Int("students", len(enrollments)),
		zap.Int("assigned", len(assignments)))

	return &dto.GenerateSeatingResponse{
		CourseID: req.CourseID,
		Category: req.Category,
		Assigned: len(assignments),
		Rooms:    plans,
	}, nil
}

// Plan returns the stored seat map for every room of the exam group.
func (s *SeatingService) Plan(ctx context.Context, category, courseID string) ([]dto.RoomPlanView, error) {
	if category == "" || courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category and courseId are required")
	}
	group, err := s.exams.ListGroup(ctx, category, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam group")
	}
	if len(group) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no scheduled exam found for this course and category")
	}

	plans := make([]dto.RoomPlanView, 0, len(group))
	for _, exam := range group {
		room, err := s.classrooms.FindByID(ctx, exam.ClassroomID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
		}
		seats, err := s.seats.ListByExam(ctx, exam.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seat assignments")
		}
		plan := dto.RoomPlanView{
			ExamID:        exam.ID,
			ClassroomID:   room.ID,
			ClassroomCode: room.Code,
			Capacity:      room.Capacity,
			Rows:          room.Rows,
			Columns:       room.Columns,
			SeatGroup:     room.SeatGroup,
		}
		for _, seat := range seats {
			plan.Seats = append(plan.Seats, dto.SeatView{
				StudentID:     seat.StudentID,
				StudentNumber: seat.StudentNumber,
				StudentName:   seat.StudentName,
				SeatRow:       seat.SeatRow,
				SeatCol:       seat.SeatCol,
			})
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (s *SeatingService) newRand(seed *int64) *rand.Rand {
	switch {
	case seed != nil:
		return rand.New(rand.NewSource(*seed))
	case s.cfg.Seed != 0:
		return rand.New(rand.NewSource(s.cfg.Seed))
	default:
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

type seatCoord struct {
	row int
	col int
}

// enumerateSeats lists every valid coordinate of a room. Rows are
// 1-based; the physical column is cluster index times group size plus the
// in-cluster offset, so clusters never share a usable column.
func enumerateSeats(rows, columns, seatGroup int) []seatCoord {
	offsets, ok := seatOffsets[seatGroup]
	if !ok {
		return nil
	}
	coords := make([]seatCoord, 0, rows*columns*len(offsets))
	for r := 0; r < rows; r++ {
		for c := 0; c < columns; c++ {
			for _, offset := range offsets {
				coords = append(coords, seatCoord{row: r + 1, col: c*seatGroup + offset})
			}
		}
	}
	return coords
}
