package dto

// CourseOverride adjusts per-course exam parameters for one run.
type CourseOverride struct {
	CourseID        string `json:"courseId" validate:"required"`
	DurationMinutes *int   `json:"durationMinutes" validate:"omitempty,min=15,max=480"`
}

// GenerateExamScheduleRequest instructs the scheduler to build a full
// exam timetable for a category (exam period) over a date range.
type GenerateExamScheduleRequest struct {
	Category        string           `json:"category" validate:"required,max=64"`
	StartDate       string           `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string           `json:"endDate" validate:"required,datetime=2006-01-02"`
	DurationMinutes *int             `json:"durationMinutes" validate:"omitempty,min=15,max=480"`
	BreakMinutes    *int             `json:"breakMinutes" validate:"omitempty,min=0,max=120"`
	IncludeWeekends bool             `json:"includeWeekends"`
	ExcludedDates   []string         `json:"excludedDates" validate:"omitempty,dive,datetime=2006-01-02"`
	CourseIDs       []string         `json:"courseIds" validate:"required,min=1,dive,required"`
	ClassroomIDs    []string         `json:"classroomIds"`
	NoOverlap       bool             `json:"noOverlap"`
	Overrides       []CourseOverride `json:"overrides" validate:"omitempty,dive"`
}

// ExamSlotView is one scheduled room sitting in the response.
type ExamSlotView struct {
	ExamID         string `json:"examId"`
	CourseID       string `json:"courseId"`
	CourseCode     string `json:"courseCode"`
	CourseName     string `json:"courseName"`
	CourseYear     int    `json:"courseYear"`
	ClassroomID    string `json:"classroomId"`
	ClassroomCode  string `json:"classroomCode"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	StudentsInRoom int    `json:"studentsInRoom"`
	TotalStudents  int    `json:"totalStudents"`
}

// ScheduleErrorView reports a course the run could not place.
type ScheduleErrorView struct {
	CourseID      string `json:"courseId"`
	CourseCode    string `json:"courseCode"`
	CourseName    string `json:"courseName"`
	Enrollment    int    `json:"enrollment"`
	TotalCapacity int    `json:"totalCapacity"`
	Reason        string `json:"reason"`
}

// GenerateExamScheduleResponse returns the committed timetable.
type GenerateExamScheduleResponse struct {
	Category  string              `json:"category"`
	Scheduled int                 `json:"scheduled"`
	Slots     []ExamSlotView      `json:"slots"`
	Errors    []ScheduleErrorView `json:"errors"`
}

// ExamScheduleQuery filters committed exams.
type ExamScheduleQuery struct {
	Category string `form:"category" json:"category"`
	CourseID string `form:"courseId" json:"courseId"`
	DateFrom string `form:"dateFrom" json:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"dateTo" json:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"pageSize" json:"pageSize"`
}
