package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// WindowHandler exposes registration window endpoints.
type WindowHandler struct {
	service *service.WindowService
}

// NewWindowHandler constructs a window handler.
func NewWindowHandler(svc *service.WindowService) *WindowHandler {
	return &WindowHandler{service: svc}
}

// List godoc
// @Summary List registration windows for a semester
// @Tags Windows
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{semesterId}/windows [get]
func (h *WindowHandler) List(c *gin.Context) {
	windows, err := h.service.List(c.Request.Context(), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Create godoc
// @Summary Create a registration window
// @Tags Windows
// @Accept json
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Param payload body service.CreateWindowRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /semesters/{semesterId}/windows [post]
func (h *WindowHandler) Create(c *gin.Context) {
	var req service.CreateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.SemesterID = c.Param("semesterId")

	window, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// Delete godoc
// @Summary Delete a registration window
// @Tags Windows
// @Produce json
// @Param id path string true "Window ID"
// @Success 204 "No Content"
// @Router /windows/{id} [delete]
func (h *WindowHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
