package dto

// CreateReportRequest queues an asynchronous export job.
type CreateReportRequest struct {
	Type     string  `json:"type" validate:"required,oneof=timetable seating"`
	Category string  `json:"category" validate:"required,max=64"`
	CourseID *string `json:"courseId"`
	Format   string  `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ReportJobView is the job status projection returned by the API.
type ReportJobView struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Progress     int     `json:"progress"`
	ResultURL    *string `json:"resultUrl,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	FinishedAt   *string `json:"finishedAt,omitempty"`
}

// RosterImportResult summarises an uploaded enrollment roster.
type RosterImportResult struct {
	StudentsCreated    int      `json:"studentsCreated"`
	StudentsUpdated    int      `json:"studentsUpdated"`
	EnrollmentsCreated int      `json:"enrollmentsCreated"`
	RowsSkipped        int      `json:"rowsSkipped"`
	Warnings           []string `json:"warnings,omitempty"`
}
