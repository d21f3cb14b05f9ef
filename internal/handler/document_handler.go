package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// DocumentHandler exposes course document endpoints.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler constructs a document handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a course document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param courseId path string true "Course ID"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{courseId}/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	uploadedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		uploadedBy = claims.UserID
	}

	doc, err := h.service.Upload(c.Request.Context(), service.UploadDocumentRequest{
		CourseID:   c.Param("courseId"),
		FileName:   fileHeader.Filename,
		MimeType:   fileHeader.Header.Get("Content-Type"),
		SizeBytes:  fileHeader.Size,
		UploadedBy: uploadedBy,
		Content:    file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List documents for a course
// @Tags Documents
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.service.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// SignedLink godoc
// @Summary Issue a signed download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/link [get]
func (h *DocumentHandler) SignedLink(c *gin.Context) {
	link, err := h.service.SignedLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a document via signed token
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	doc, file, err := h.service.Download(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", "attachment; filename="+doc.FileName)
	c.Header("Content-Type", doc.MimeType)
	http.ServeContent(c.Writer, c.Request, doc.FileName, doc.CreatedAt, file)
}
