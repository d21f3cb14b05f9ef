package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// EnrollmentHandler exposes enrollment declaration endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Check godoc
// @Summary Check declaration eligibility
// @Tags Enrollment
// @Produce json
// @Param studentId query string false "Student ID (admins only; students use their own)"
// @Success 200 {object} response.Envelope
// @Router /enrollment/check [get]
func (h *EnrollmentHandler) Check(c *gin.Context) {
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

// Declare godoc
// @Summary Declare enrollment in a course
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.DeclareRequest true "Declaration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollment [post]
func (h *EnrollmentHandler) Declare(c *gin.Context) {
	var req service.DeclareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.StudentID != "" {
		req.StudentID = claims.StudentID
	}

	declaration, err := h.service.Declare(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, declaration)
}

// Cancel godoc
// @Summary Cancel enrollment declarations
// @Description Removes the listed declarations. Absent ids are skipped; the response carries the removed count.
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.CancelDeclarationsRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	var req service.CancelDeclarationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.StudentID != "" {
		req.StudentID = claims.StudentID
	}

	result, err := h.service.Cancel(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, result, "declarations cancelled")
}

// ListMine godoc
// @Summary List a student's declarations for a semester
// @Tags Enrollment
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment/{studentId}/{semesterId} [get]
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	declarations, err := h.service.ListMine(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, declarations, nil)
}
