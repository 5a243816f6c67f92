package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniexam/exam-scheduler-api/internal/dto"
	"github.com/uniexam/exam-scheduler-api/internal/models"
	"github.com/uniexam/exam-scheduler-api/internal/service"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
	"github.com/uniexam/exam-scheduler-api/pkg/response"
)

// ExamScheduleHandler wires the scheduling engine to HTTP routes.
type ExamScheduleHandler struct {
	scheduler *service.ExamSchedulerService
	cache     *service.CacheService
}

// NewExamScheduleHandler constructs a new ExamScheduleHandler.
func NewExamScheduleHandler(scheduler *service.ExamSchedulerService, cache *service.CacheService) *ExamScheduleHandler {
	return &ExamScheduleHandler{scheduler: scheduler, cache: cache}
}

// timetablePayload is the cached shape of a timetable listing.
type timetablePayload struct {
	Exams      []models.ExamDetail `json:"exams"`
	Pagination *models.Pagination  `json:"pagination"`
}

// Generate godoc
// @Summary Generate an exam timetable
// @Description Build and persist the full timetable for a category, replacing prior exams of that category
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateExamScheduleRequest true "Generation parameters"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *ExamScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateExamScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.scheduler.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List scheduled exams
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param category query string false "Exam category"
// @Param courseId query string false "Filter by course"
// @Param dateFrom query string false "Earliest exam date (YYYY-MM-DD)"
// @Param dateTo query string false "Latest exam date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ExamScheduleHandler) List(c *gin.Context) {
	var query dto.ExamScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule query"))
		return
	}

	cacheKey := h.cacheKey(query)
	if cacheKey != "" && h.cache != nil && h.cache.Enabled() {
		var payload timetablePayload
		if hit, err := h.cache.Get(c.Request.Context(), cacheKey, &payload); err == nil && hit {
			response.JSON(c, http.StatusOK, payload.Exams, payload.Pagination)
			return
		}
	}

	exams, pagination, err := h.scheduler.ListTimetable(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	if cacheKey != "" && h.cache != nil && h.cache.Enabled() {
		_ = h.cache.Set(c.Request.Context(), cacheKey, timetablePayload{Exams: exams, Pagination: pagination}, 0)
	}
	response.JSON(c, http.StatusOK, exams, pagination)
}

// DeleteCategory godoc
// @Summary Delete every exam of a category
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param category path string true "Exam category"
// @Success 200 {object} response.Envelope
// @Router /schedule/{category} [delete]
func (h *ExamScheduleHandler) DeleteCategory(c *gin.Context) {
	deleted, err := h.scheduler.DeleteCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}

// cacheKey scopes cached listings to a category so a regeneration can
// invalidate them by prefix. Uncategorized queries are never cached.
func (h *ExamScheduleHandler) cacheKey(query dto.ExamScheduleQuery) string {
	if query.Category == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s:%s:%d:%d",
		service.TimetableKey(query.Category), query.CourseID, query.DateFrom, query.DateTo, query.Page, query.PageSize)
}
