package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniexam/exam-scheduler-api/internal/dto"
	"github.com/uniexam/exam-scheduler-api/internal/models"
	"github.com/uniexam/exam-scheduler-api/pkg/config"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type schedulerCourseReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.CourseDetail, error)
}

type schedulerClassroomReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error)
}

type schedulerEnrollmentReader interface {
	StudentIDsByCourse(ctx context.Context, courseIDs []string) (map[string][]string, error)
}

type examScheduleWriter interface {
	ReplaceCategory(ctx context.Context, category string, exams []models.Exam) error
	List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error)
	DeleteCategory(ctx context.Context, category string) (int64, error)
}

type timetableCacheInvalidator interface {
	InvalidateTimetable(ctx context.Context, category string)
}

type schedulerMetricsRecorder interface {
	RecordScheduleRun(placed, unplaced int)
}

// ExamSchedulerService builds exam timetables for a category and persists
// them with full-replace semantics.
type ExamSchedulerService struct {
	courses     schedulerCourseReader
	classrooms  schedulerClassroomReader
	enrollments schedulerEnrollmentReader
	exams       examScheduleWriter
	cache       timetableCacheInvalidator
	metrics     schedulerMetricsRecorder
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.SchedulerConfig
}

// NewExamSchedulerService wires scheduler dependencies.
func NewExamSchedulerService(
	courses schedulerCourseReader,
	classrooms schedulerClassroomReader,
	enrollments schedulerEnrollmentReader,
	exams examScheduleWriter,
	cache timetableCacheInvalidator,
	metrics schedulerMetricsRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.SchedulerConfig,
) *ExamSchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DayStartMinute <= 0 {
		cfg.DayStartMinute = 540
	}
	if cfg.DayEndMinute <= cfg.DayStartMinute {
		cfg.DayEndMinute = 1020
	}
	if cfg.SlotStepMinutes <= 0 {
		cfg.SlotStepMinutes = 15
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 75
	}
	if cfg.DefaultBreak <= 0 {
		cfg.DefaultBreak = 15
	}
	if cfg.YearDailyQuota <= 0 {
		cfg.YearDailyQuota = 2
	}
	return &ExamSchedulerService{
		courses:     courses,
		classrooms:  classrooms,
		enrollments: enrollments,
		exams:       exams,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate runs the full scheduling pipeline: validate the request, load
// the snapshot, place every course, then replace every exam of the
// requested category in one transaction.
func (s *ExamSchedulerService) Generate(ctx context.Context, req dto.GenerateExamScheduleRequest) (*dto.GenerateExamScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be formatted as YYYY-MM-DD")
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be formatted as YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	duration := s.cfg.DefaultDuration
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	breakMinutes := s.cfg.DefaultBreak
	if req.BreakMinutes != nil {
		breakMinutes = *req.BreakMinutes
	}
	if duration <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam duration must be positive")
	}

	excluded := make(map[string]bool, len(req.ExcludedDates))
	for _, d := range req.ExcludedDates {
		excluded[d] = true
	}
	dates := eligibleDates(startDate, endDate, req.IncludeWeekends, excluded)
	if len(dates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range contains no eligible exam days")
	}

	courses, err := s.courses.ListByIDs(ctx, req.CourseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	if len(courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no courses selected for scheduling")
	}
	rooms, err := s.classrooms.ListByIDs(ctx, req.ClassroomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no classrooms available for scheduling")
	}

	courseIDs := make([]string, 0, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
	}
	rosterByCourse, err := s.enrollments.StudentIDsByCourse(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	durations := s.resolveDurations(courses, req.Overrides, duration)

	run := newScheduleRun()
	errs := s.place(run, courses, rooms, rosterByCourse, durations, dates, breakMinutes, req.NoOverlap, req.Category)

	if err := s.exams.ReplaceCategory(ctx, req.Category, run.committed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist exam schedule")
	}
	if s.cache != nil {
		s.cache.InvalidateTimetable(ctx, req.Category)
	}
	if s.metrics != nil {
		s.metrics.RecordScheduleRun(len(run.placedCourses), len(errs))
	}
	s.logger.Info("exam schedule generated",
		zap.String("category", req.Category),
		zap.Int("coursesPlaced", len(run.placedCourses)),
		zap.Int("coursesFailed", len(errs)),
		zap.Int("examRows", len(run.committed)))

	return s.buildResponse(req.Category, run, courses, rooms, errs), nil
}

// ListTimetable returns committed exam sittings for display.
func (s *ExamSchedulerService) ListTimetable(ctx context.Context, query dto.ExamScheduleQuery) ([]models.ExamDetail, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	filter := models.ExamFilter{
		Category: query.Category,
		CourseID: query.CourseID,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.DateFrom != "" {
		from, err := time.Parse(dateLayout, query.DateFrom)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "dateFrom must be formatted as YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if query.DateTo != "" {
		to, err := time.Parse(dateLayout, query.DateTo)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "dateTo must be formatted as YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	exams, total, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return exams, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// DeleteCategory removes every committed exam of a category.
func (s *ExamSchedulerService) DeleteCategory(ctx context.Context, category string) (int64, error) {
	if category == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "category is required")
	}
	affected, err := s.exams.DeleteCategory(ctx, category)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam category")
	}
	if s.cache != nil {
		s.cache.InvalidateTimetable(ctx, category)
	}
	return affected, nil
}

func (s *ExamSchedulerService) resolveDurations(courses []models.CourseDetail, overrides []dto.CourseOverride, fallback int) map[string]int {
	durations := make(map[string]int, len(courses))
	for _, c := range courses {
		if c.DurationMinutes != nil && *c.DurationMinutes > 0 {
			durations[c.ID] = *c.DurationMinutes
		} else {
			durations[c.ID] = fallback
		}
	}
	for _, o := range overrides {
		if o.DurationMinutes != nil && *o.DurationMinutes > 0 {
			durations[o.CourseID] = *o.DurationMinutes
		}
	}
	return durations
}

// place iterates the courses in priority order and commits the first
// feasible (date, slot, room set) for each. Courses that cannot be placed
// are collected as errors; the run never aborts on a single course.
func (s *ExamSchedulerService) place(
	run *scheduleRun,
	courses []models.CourseDetail,
	rooms []models.Classroom,
	roster map[string][]string,
	durations map[string]int,
	dates []time.Time,
	breakMinutes int,
	noOverlap bool,
	category string,
) []models.ScheduleError {
	ordered := make([]models.CourseDetail, len(courses))
	copy(ordered, courses)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Year != ordered[j].Year {
			return ordered[i].Year < ordered[j].Year
		}
		return ordered[i].EnrollmentCount > ordered[j].EnrollmentCount
	})

	totalCapacity := 0
	for _, room := range rooms {
		totalCapacity += room.Capacity
	}

	var errs []models.ScheduleError
	for _, course := range ordered {
		if course.EnrollmentCount == 0 {
			s.logger.Debug("skipping course without enrollments", zap.String("course", course.Code))
			continue
		}
		duration := durations[course.ID]
		if s.scheduleCourse(run, course, rooms, roster[course.ID], duration, dates, breakMinutes, noOverlap, category) {
			continue
		}
		errs = append(errs, models.ScheduleError{
			CourseID:      course.ID,
			CourseCode:    course.Code,
			CourseName:    course.Name,
			Enrollment:    course.EnrollmentCount,
			TotalCapacity: totalCapacity,
			Reason:        "no feasible date and time slot within the requested window",
		})
	}
	return errs
}

func (s *ExamSchedulerService) scheduleCourse(
	run *scheduleRun,
	course models.CourseDetail,
	rooms []models.Classroom,
	students []string,
	duration int,
	dates []time.Time,
	breakMinutes int,
	noOverlap bool,
	category string,
) bool {
	for _, date := range dates {
		day := date.Format(dateLayout)
		if run.yearCount[yearDateKey{course.Year, day}] >= s.cfg.YearDailyQuota {
			continue
		}
		fills := allocateRooms(rooms, course.EnrollmentCount)
		if fills == nil {
			continue
		}
		start, ok := s.findSlot(run, fills, day, duration, breakMinutes)
		if !ok {
			continue
		}
		end := start + duration + breakMinutes
		if conflicted(run.studentIntervals, students, day, start, end) {
			continue
		}
		if noOverlap && overlapsAny(run.dateIntervals[day], start, end) {
			continue
		}

		run.commit(category, course, fills, date, start, duration, breakMinutes, students)
		return true
	}
	return false
}

// findSlot returns the earliest start minute at which every selected room
// is free for the full interval including the break buffer.
func (s *ExamSchedulerService) findSlot(run *scheduleRun, fills []roomFill, day string, duration, breakMinutes int) (int, bool) {
	for start := s.cfg.DayStartMinute; start+duration <= s.cfg.DayEndMinute; start += s.cfg.SlotStepMinutes {
		end := start + duration + breakMinutes
		free := true
		for _, fill := range fills {
			if overlapsAny(run.roomIntervals[roomDateKey{fill.room.ID, day}], start, end) {
				free = false
				break
			}
		}
		if free {
			return start, true
		}
	}
	return 0, false
}

func (s *ExamSchedulerService) buildResponse(
	category string,
	run *scheduleRun,
	courses []models.CourseDetail,
	rooms []models.Classroom,
	errs []models.ScheduleError,
) *dto.GenerateExamScheduleResponse {
	courseByID := make(map[string]models.CourseDetail, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}
	roomByID := make(map[string]models.Classroom, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
	}

	slots := make([]dto.ExamSlotView, 0, len(run.committed))
	for _, exam := range run.committed {
		course := courseByID[exam.CourseID]
		room := roomByID[exam.ClassroomID]
		slots = append(slots, dto.ExamSlotView{
			ExamID:         exam.ID,
			CourseID:       exam.CourseID,
			CourseCode:     course.Code,
			CourseName:     course.Name,
			CourseYear:     course.Year,
			ClassroomID:    exam.ClassroomID,
			ClassroomCode:  room.Code,
			Date:           exam.ExamDate.Format(dateLayout),
			StartTime:      minutesToClock(exam.StartMinute),
			EndTime:        minutesToClock(exam.StartMinute + exam.DurationMinutes),
			StudentsInRoom: exam.StudentsInRoom,
			TotalStudents:  exam.TotalStudents,
		})
	}

	errViews := make([]dto.ScheduleErrorView, 0, len(errs))
	for _, e := range errs {
		errViews = append(errViews, dto.ScheduleErrorView{
			CourseID:      e.CourseID,
			CourseCode:    e.CourseCode,
			CourseName:    e.CourseName,
			Enrollment:    e.Enrollment,
			TotalCapacity: e.TotalCapacity,
			Reason:        e.Reason,
		})
	}

	return &dto.GenerateExamScheduleResponse{
		Category:  category,
		Scheduled: len(run.placedCourses),
		Slots:     slots,
		Errors:    errViews,
	}
}

// --- Run state ---

type roomDateKey struct {
	RoomID string
	Date   string
}

type studentDateKey struct {
	StudentID string
	Date      string
}

type yearDateKey struct {
	Year int
	Date string
}

type interval struct {
	start int
	end   int
}

// scheduleRun holds the bookkeeping of one scheduling invocation. It is
// created fresh per run and never shared between runs.
type scheduleRun struct {
	roomIntervals    map[roomDateKey][]interval
	studentIntervals map[studentDateKey][]interval
	dateIntervals    map[string][]interval
	yearCount        map[yearDateKey]int
	placedCourses    map[string]struct{}
	committed        []models.Exam
}

func newScheduleRun() *scheduleRun {
	return &scheduleRun{
		roomIntervals:    make(map[roomDateKey][]interval),
		studentIntervals: make(map[studentDateKey][]interval),
		dateIntervals:    make(map[string][]interval),
		yearCount:        make(map[yearDateKey]int),
		placedCourses:    make(map[string]struct{}),
	}
}

func (r *scheduleRun) commit(
	category string,
	course models.CourseDetail,
	fills []roomFill,
	date time.Time,
	start, duration, breakMinutes int,
	students []string,
) {
	day := date.Format(dateLayout)
	booked := interval{start, start + duration + breakMinutes}

	for _, fill := range fills {
		r.committed = append(r.committed, models.Exam{
			Category:        category,
			CourseID:        course.ID,
			ClassroomID:     fill.room.ID,
			ExamDate:        date,
			StartMinute:     start,
			DurationMinutes: duration,
			BreakMinutes:    breakMinutes,
			StudentsInRoom:  fill.count,
			TotalStudents:   course.EnrollmentCount,
		})
		key := roomDateKey{fill.room.ID, day}
		r.roomIntervals[key] = append(r.roomIntervals[key], booked)
	}
	for _, studentID := range students {
		key := studentDateKey{studentID, day}
		r.studentIntervals[key] = append(r.studentIntervals[key], booked)
	}
	r.dateIntervals[day] = append(r.dateIntervals[day], booked)
	r.yearCount[yearDateKey{course.Year, day}]++
	r.placedCourses[course.ID] = struct{}{}
}

func conflicted(intervals map[studentDateKey][]interval, students []string, day string, start, end int) bool {
	for _, studentID := range students {
		if overlapsAny(intervals[studentDateKey{studentID, day}], start, end) {
			return true
		}
	}
	return false
}

// --- Capacity allocator ---

type roomFill struct {
	room  models.Classroom
	count int
}

// allocateRooms fills rooms by descending capacity until the enrollment is
// covered. Returns nil when the combined capacity is insufficient. The
// input is expected pre-sorted by capacity descending.
func allocateRooms(rooms []models.Classroom, needed int) []roomFill {
	var fills []roomFill
	remaining := needed
	for _, room := range rooms {
		if remaining <= 0 {
			break
		}
		take := room.Capacity
		if take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}
		fills = append(fills, roomFill{room: room, count: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil
	}
	return fills
}

// --- Time grid ---

// eligibleDates expands the inclusive date range into exam days, dropping
// excluded dates and, unless requested, weekends.
func eligibleDates(start, end time.Time, includeWeekends bool, excluded map[string]bool) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !includeWeekends {
			wd := d.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				continue
			}
		}
		if excluded[d.Format(dateLayout)] {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// overlapsAny reports whether [start, end) intersects any booked interval.
func overlapsAny(intervals []interval, start, end int) bool {
	for _, iv := range intervals {
		if start < iv.end && iv.start < end {
			return true
		}
	}
	return false
}

func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
