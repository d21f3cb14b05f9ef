package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/models"
	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// SemesterHandler exposes semester endpoints.
type SemesterHandler struct {
	service *service.SemesterService
}

// NewSemesterHandler constructs a semester handler.
func NewSemesterHandler(svc *service.SemesterService) *SemesterHandler {
	return &SemesterHandler{service: svc}
}

// List godoc
// @Summary List semesters
// @Tags Semesters
// @Produce json
// @Param academicYearId query string false "Filter by academic year"
// @Param isCurrent query bool false "Filter by current flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *SemesterHandler) List(c *gin.Context) {
	var filter models.SemesterFilter
	filter.AcademicYearID = c.Query("academicYearId")
	if isCurrent := c.Query("isCurrent"); isCurrent != "" {
		if val, err := strconv.ParseBool(isCurrent); err == nil {
			filter.IsCurrent = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	semesters, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, semesters, pagination)
}

// Current godoc
// @Summary Get the current semester
// @Tags Semesters
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /semesters/current [get]
func (h *SemesterHandler) Current(c *gin.Context) {
	semester, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// Get godoc
// @Summary Get a semester
// @Tags Semesters
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{semesterId} [get]
func (h *SemesterHandler) Get(c *gin.Context) {
	semester, err := h.service.Get(c.Request.Context(), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// Create godoc
// @Summary Create a semester
// @Description Creates the semester and seeds its five phase rows, all disabled.
// @Tags Semesters
// @Accept json
// @Produce json
// @Param payload body service.CreateSemesterRequest true "Semester payload"
// @Success 201 {object} response.Envelope
// @Router /semesters [post]
func (h *SemesterHandler) Create(c *gin.Context) {
	var req service.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	semester, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, semester)
}

// Update godoc
// @Summary Update a semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Param payload body service.UpdateSemesterRequest true "Semester payload"
// @Success 200 {object} response.Envelope
// @Router /semesters/{semesterId} [put]
func (h *SemesterHandler) Update(c *gin.Context) {
	var req service.UpdateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	semester, err := h.service.Update(c.Request.Context(), c.Param("semesterId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// SetCurrent godoc
// @Summary Mark a semester as current
// @Tags Semesters
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{semesterId}/current [put]
func (h *SemesterHandler) SetCurrent(c *gin.Context) {
	semester, err := h.service.SetCurrent(c.Request.Context(), c.Param("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, semester, "current semester updated")
}

// Delete godoc
// @Summary Delete a semester
// @Tags Semesters
// @Produce json
// @Param semesterId path string true "Semester ID"
// @Success 204 "No Content"
// @Failure 409 {object} response.Envelope
// @Router /semesters/{semesterId} [delete]
func (h *SemesterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("semesterId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AcademicYears godoc
// @Summary List academic years
// @Tags Semesters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *SemesterHandler) AcademicYears(c *gin.Context) {
	years, err := h.service.ListAcademicYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}
