package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// RegistrationHandler exposes section registration endpoints.
type RegistrationHandler struct {
	service *service.RegistrationService
}

// NewRegistrationHandler constructs a registration handler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// Check godoc
// @Summary Check registration eligibility
// @Tags Registration
// @Produce json
// @Param studentId query string false "Student ID (admins only; students use their own)"
// @Success 200 {object} response.Envelope
// @Router /registration/check [get]
func (h *RegistrationHandler) Check(c *gin.Context) {
	studentID := c.Query("studentId")
	if claims := claimsFromContext(c); claims != nil && claims.StudentID != "" {
		studentID = claims.StudentID
	}

	result, err := h.service.CheckEligibility(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Register godoc
// @Summary Register into a course section
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body service.RegisterSectionRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registration [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req service.RegisterSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.StudentID != "" {
		req.StudentID = claims.StudentID
	}

	registration, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// Drop godoc
// @Summary Drop a section registration
// @Tags Registration
// @Produce json
// @Param id path string true "Registration ID"
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Router /registration/{id} [delete]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	req := service.DropSectionRequest{RegistrationID: c.Param("id")}
	if claims := claimsFromContext(c); claims != nil && claims.StudentID != "" {
		req.StudentID = claims.StudentID
	}

	if err := h.service.Drop(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMine godoc
// @Summary List a student's registrations for a semester
// @Tags Registration
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /registration/{studentId}/{semesterId} [get]
func (h *RegistrationHandler) ListMine(c *gin.Context) {
	registrations, err := h.service.ListMine(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, nil)
}

// History godoc
// @Summary Get a student's registration action trail
// @Tags Registration
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /registration/{studentId}/{semesterId}/history [get]
func (h *RegistrationHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
