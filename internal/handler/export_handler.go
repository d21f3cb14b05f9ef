package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/service"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// ExportHandler exposes asynchronous roster export endpoints.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// EnqueueRoster godoc
// @Summary Schedule a section roster CSV export
// @Tags Exports
// @Produce json
// @Param sectionId path string true "Section ID"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{sectionId}/roster-export [post]
func (h *ExportHandler) EnqueueRoster(c *gin.Context) {
	job, err := h.service.EnqueueRoster(c.Request.Context(), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Get export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	job, err := h.service.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Export job ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /exports/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	job, file, err := h.service.OpenFile(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", "attachment; filename="+job.FileName)
	c.Header("Content-Type", "text/csv")
	http.ServeContent(c.Writer, c.Request, job.FileName, job.UpdatedAt, file)
}
