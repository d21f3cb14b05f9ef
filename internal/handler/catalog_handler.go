package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registration-api/internal/models"
	"github.com/noah-isme/uni-registration-api/internal/service"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// CatalogHandler exposes course, section and student lookups.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// GetCourse godoc
// @Summary Get a course
// @Tags Catalog
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	course, err := h.service.GetCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// GetSection godoc
// @Summary Get a course section
// @Tags Catalog
// @Produce json
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{sectionId} [get]
func (h *CatalogHandler) GetSection(c *gin.Context) {
	section, err := h.service.GetSection(c.Request.Context(), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// ListSections godoc
// @Summary List course sections
// @Tags Catalog
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param semesterId query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *CatalogHandler) ListSections(c *gin.Context) {
	var filter models.SectionFilter
	filter.CourseID = c.Query("courseId")
	filter.SemesterID = c.Query("semesterId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	sections, total, err := h.service.ListSections(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// GetStudent godoc
// @Summary Get a student
// @Tags Catalog
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId} [get]
func (h *CatalogHandler) GetStudent(c *gin.Context) {
	student, err := h.service.GetStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ListStudents godoc
// @Summary List students
// @Tags Catalog
// @Produce json
// @Param search query string false "Search by name or code"
// @Param facultyId query string false "Filter by faculty"
// @Param programId query string false "Filter by program"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *CatalogHandler) ListStudents(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = c.Query("search")
	filter.FacultyID = c.Query("facultyId")
	filter.ProgramID = c.Query("programId")
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
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

	students, total, err := h.service.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, students, pagination)
}
