package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type semesterRepository interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindCurrent(ctx context.Context) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	SetCurrent(ctx context.Context, id string) error
	CountRegistrations(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	ListAcademicYears(ctx context.Context) ([]models.AcademicYear, error)
}

type phaseSeeder interface {
	Seed(ctx context.Context, semesterID string, ids []string) error
}

// CreateSemesterRequest is the semester creation payload.
type CreateSemesterRequest struct {
	Name           string    `json:"name" validate:"required"`
	Sequence       int       `json:"sequence" validate:"required,min=1,max=3"`
	AcademicYearID string    `json:"academic_year_id" validate:"required"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
}

// UpdateSemesterRequest is the semester update payload.
type UpdateSemesterRequest struct {
	Name      string    `json:"name" validate:"required"`
	Sequence  int       `json:"sequence" validate:"required,min=1,max=3"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// SemesterService manages semesters and the academic calendar. Creating a
// semester also seeds its five phase rows, all disabled.
type SemesterService struct {
	semesters semesterRepository
	phases    phaseSeeder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs SemesterService.
func NewSemesterService(semesters semesterRepository, phases phaseSeeder, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{
		semesters: semesters,
		phases:    phases,
		validator: validate,
		logger:    logger,
	}
}

// List returns semesters matching the filter with a total count.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	semesters, total, err := s.semesters.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	return semesters, total, nil
}

// Get returns a semester by id.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.semesters.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Current returns the semester flagged as current.
func (s *SemesterService) Current(ctx context.Context) (*models.Semester, error) {
	semester, err := s.semesters.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoCurrentSemester
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current semester")
	}
	return semester, nil
}

// Create inserts a semester and seeds its phase rows.
func (s *SemesterService) Create(ctx context.Context, req CreateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}

	semester := &models.Semester{
		Name:           req.Name,
		Sequence:       req.Sequence,
		AcademicYearID: req.AcademicYearID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	}
	if err := s.semesters.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	if err := s.phases.Seed(ctx, semester.ID, ids); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed semester phases")
	}

	s.logger.Info("semester created",
		zap.String("semester_id", semester.ID),
		zap.String("name", semester.Name))
	return semester, nil
}

// Update modifies an existing semester.
func (s *SemesterService) Update(ctx context.Context, id string, req UpdateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}

	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	semester.Name = req.Name
	semester.Sequence = req.Sequence
	semester.StartDate = req.StartDate
	semester.EndDate = req.EndDate

	if err := s.semesters.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	return semester, nil
}

// SetCurrent flags the semester as current, clearing the flag elsewhere.
func (s *SemesterService) SetCurrent(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.semesters.SetCurrent(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current semester")
	}
	semester.IsCurrent = true

	s.logger.Info("current semester changed", zap.String("semester_id", id))
	return semester, nil
}

// Delete removes a semester. Semesters with registrations cannot be deleted.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.semesters.CountRegistrations(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "semester has registrations and cannot be deleted")
	}

	if err := s.semesters.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	s.logger.Info("semester deleted", zap.String("semester_id", id))
	return nil
}

// ListAcademicYears returns all academic years.
func (s *SemesterService) ListAcademicYears(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.semesters.ListAcademicYears(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}
