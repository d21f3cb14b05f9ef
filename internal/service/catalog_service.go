package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type catalogCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindSectionByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ListSections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
}

type catalogStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

// CatalogService serves read-only course, section and student lookups backing
// the registration UI.
type CatalogService struct {
	courses  catalogCourseRepository
	students catalogStudentRepository
	logger   *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(courses catalogCourseRepository, students catalogStudentRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{courses: courses, students: students, logger: logger}
}

// GetCourse returns a course by id.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// GetSection returns a section with course context.
func (s *CatalogService) GetSection(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.courses.FindSectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSectionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// ListSections returns sections matching the filter with a total count.
func (s *CatalogService) ListSections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	sections, total, err := s.courses.ListSections(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, total, nil
}

// GetStudent returns a student with faculty and program context.
func (s *CatalogService) GetStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ListStudents returns students matching the filter with a total count.
func (s *CatalogService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}
