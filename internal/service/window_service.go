package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type windowRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.RegistrationWindow, error)
	Create(ctx context.Context, window *models.RegistrationWindow) error
	Delete(ctx context.Context, id string) error
}

// CreateWindowRequest is the registration window creation payload.
type CreateWindowRequest struct {
	SemesterID string             `json:"semester_id" validate:"required"`
	Scope      models.WindowScope `json:"scope" validate:"required"`
	FacultyID  *string            `json:"faculty_id,omitempty"`
	PhaseTag   models.PhaseTag    `json:"phase_tag" validate:"required"`
	StartAt    time.Time          `json:"start_at" validate:"required"`
	EndAt      time.Time          `json:"end_at" validate:"required"`
}

// WindowService manages registration windows layered on top of phases.
type WindowService struct {
	windows   windowRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWindowService constructs WindowService.
func NewWindowService(windows windowRepository, validate *validator.Validate, logger *zap.Logger) *WindowService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowService{windows: windows, validator: validate, logger: logger}
}

// List returns all windows configured for a semester.
func (s *WindowService) List(ctx context.Context, semesterID string) ([]models.RegistrationWindow, error) {
	if semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "semesterId is required")
	}
	windows, err := s.windows.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list windows")
	}
	return windows, nil
}

// Create validates and persists a registration window. Faculty-scoped windows
// require a faculty id; institution-wide windows must not carry one.
func (s *WindowService) Create(ctx context.Context, req CreateWindowRequest) (*models.RegistrationWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window payload")
	}
	if !req.PhaseTag.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidPhase, "unrecognised phase tag")
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_at must be after start_at")
	}
	switch req.Scope {
	case models.ScopeInstitution:
		if req.FacultyID != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "institution windows must not name a faculty")
		}
	case models.ScopeFaculty:
		if req.FacultyID == nil || *req.FacultyID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "faculty windows require faculty_id")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "scope must be INSTITUTION or FACULTY")
	}

	window := &models.RegistrationWindow{
		SemesterID: req.SemesterID,
		Scope:      req.Scope,
		FacultyID:  req.FacultyID,
		PhaseTag:   req.PhaseTag,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
	}
	if err := s.windows.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create window")
	}

	s.logger.Info("registration window created",
		zap.String("window_id", window.ID),
		zap.String("semester_id", window.SemesterID),
		zap.String("scope", string(window.Scope)),
		zap.String("phase_tag", string(window.PhaseTag)))
	return window, nil
}

// Delete removes a registration window.
func (s *WindowService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrMissingParams, "window id is required")
	}
	if err := s.windows.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete window")
	}
	s.logger.Info("registration window deleted", zap.String("window_id", id))
	return nil
}
