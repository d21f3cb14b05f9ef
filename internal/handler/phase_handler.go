package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// PhaseHandler exposes registration phase endpoints.
type PhaseHandler struct {
	service *service.PhaseService
}

// NewPhaseHandler constructs a phase handler.
func NewPhaseHandler(svc *service.PhaseService) *PhaseHandler {
	return &PhaseHandler{service: svc}
}

// List godoc
// @Summary List phases for a semester
// @Tags Phases
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{semesterId}/phases [get]
func (h *PhaseHandler) List(c *gin.Context) {
	phases, err := h.service.List(c.Request.Context(), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, phases, nil)
}

// Current godoc
// @Summary Get the active phase for a semester
// @Tags Phases
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /semesters/{semesterId}/phases/current [get]
func (h *PhaseHandler) Current(c *gin.Context) {
	phase, err := h.service.Current(c.Request.Context(), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, phase, nil)
}

// SetActive godoc
// @Summary Transition the semester to a phase
// @Tags Phases
// @Accept json
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Param payload body service.SetActivePhaseRequest true "Phase payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /semesters/{semesterId}/phases/active [put]
func (h *PhaseHandler) SetActive(c *gin.Context) {
	var req service.SetActivePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.SemesterID = c.Param("semesterId")

	result, err := h.service.SetActive(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, result, "phase activated")
}
