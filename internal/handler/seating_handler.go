package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniexam/exam-scheduler-api/internal/dto"
	"github.com/uniexam/exam-scheduler-api/internal/service"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
	"github.com/uniexam/exam-scheduler-api/pkg/response"
)

// SeatingHandler wires seating plan services to HTTP routes.
type SeatingHandler struct {
	seating *service.SeatingService
}

// NewSeatingHandler constructs a new SeatingHandler.
func NewSeatingHandler(seating *service.SeatingService) *SeatingHandler {
	return &SeatingHandler{seating: seating}
}

// Generate godoc
// @Summary Generate a seating plan
// @Description Shuffle and seat every enrolled student across the rooms of a scheduled exam, replacing any prior plan
// @Tags Seating
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateSeatingRequest true "Seating parameters"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /seating/generate [post]
func (h *SeatingHandler) Generate(c *gin.Context) {
	var req dto.GenerateSeatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid seating payload"))
		return
	}
	result, err := h.seating.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Plan godoc
// @Summary View the stored seating plan
// @Tags Seating
// @Produce json
// @Security BearerAuth
// @Param category query string true "Exam category"
// @Param courseId query string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /seating [get]
func (h *SeatingHandler) Plan(c *gin.Context) {
	plans, err := h.seating.Plan(c.Request.Context(), c.Query("category"), c.Query("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}
