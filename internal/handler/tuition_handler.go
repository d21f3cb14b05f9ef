package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/service"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// TuitionHandler exposes tuition endpoints.
type TuitionHandler struct {
	service *service.TuitionService
}

// NewTuitionHandler constructs a tuition handler.
func NewTuitionHandler(svc *service.TuitionService) *TuitionHandler {
	return &TuitionHandler{service: svc}
}

// Get godoc
// @Summary Get a tuition bill
// @Tags Tuition
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tuition/{studentId}/{semesterId} [get]
func (h *TuitionHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Compute godoc
// @Summary Recompute a tuition bill from active registrations
// @Tags Tuition
// @Produce json
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /tuition/{studentId}/{semesterId}/compute [post]
func (h *TuitionHandler) Compute(c *gin.Context) {
	detail, err := h.service.Compute(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, detail, "tuition computed")
}

// Invoice godoc
// @Summary Download the tuition invoice PDF
// @Tags Tuition
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param semesterId path string true "Semester ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /tuition/{studentId}/{semesterId}/invoice [get]
func (h *TuitionHandler) Invoice(c *gin.Context) {
	pdf, filename, err := h.service.ExportInvoice(c.Request.Context(), c.Param("studentId"), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
