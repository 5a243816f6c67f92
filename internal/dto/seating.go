package dto

// GenerateSeatingRequest builds seat assignments for every scheduled
// sitting of one course. Seed, when set, makes the shuffle reproducible.
type GenerateSeatingRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Category string `json:"category" validate:"required,max=64"`
	Seed     *int64 `json:"seed"`
}

// SeatView is one assigned seat in a room plan.
type SeatView struct {
	StudentID     string `json:"studentId"`
	StudentNumber string `json:"studentNumber"`
	StudentName   string `json:"studentName"`
	SeatRow       int    `json:"seatRow"`
	SeatCol       int    `json:"seatCol"`
}

// RoomPlanView is the seat map for one exam room.
type RoomPlanView struct {
	ExamID        string     `json:"examId"`
	ClassroomID   string     `json:"classroomId"`
	ClassroomCode string     `json:"classroomCode"`
	Capacity      int        `json:"capacity"`
	Rows          int        `json:"rows"`
	Columns       int        `json:"columns"`
	SeatGroup     int        `json:"seatGroup"`
	Seats         []SeatView `json:"seats"`
}

// GenerateSeatingResponse returns the committed seating plan.
type GenerateSeatingResponse struct {
	CourseID string         `json:"courseId"`
	Category string         `json:"category"`
	Assigned int            `json:"assigned"`
	Rooms    []RoomPlanView `json:"rooms"`
}
