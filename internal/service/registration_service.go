package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type registrationRepository interface {
	FindByID(ctx context.Context, id string) (*models.SectionRegistration, error)
	ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error)
	Register(ctx context.Context, registration *models.SectionRegistration) error
	Cancel(ctx context.Context, id, sectionID string, cancelledAt time.Time) error
	ListActiveByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.RegistrationDetail, error)
}

type registrationSectionRepository interface {
	FindSectionByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type historyReader interface {
	ListEntries(ctx context.Context, studentID, semesterID string) ([]models.RegistrationHistoryEntry, error)
}

type registrationMetrics interface {
	IncSectionRegistration(outcome string)
}

// RegisterSectionRequest is the section registration payload.
type RegisterSectionRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// DropSectionRequest identifies a registration to drop.
type DropSectionRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	RegistrationID string `json:"registration_id" validate:"required"`
}

// RegistrationService manages binding section registrations with bounded
// seat capacity during the course registration phase.
type RegistrationService struct {
	registrations registrationRepository
	sections      registrationSectionRepository
	eligibility   eligibilityChecker
	history       historyAppender
	histories     historyReader
	metrics       registrationMetrics
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(registrations registrationRepository, sections registrationSectionRepository, eligibility eligibilityChecker, history historyAppender, histories historyReader, metrics registrationMetrics, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		registrations: registrations,
		sections:      sections,
		eligibility:   eligibility,
		history:       history,
		histories:     histories,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
	}
}

// CheckEligibility reports whether the student may register right now.
func (s *RegistrationService) CheckEligibility(ctx context.Context, studentID string) (*EligibilityResult, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "studentId is required")
	}
	return s.eligibility.Check(ctx, studentID, models.PhaseCourseRegistration)
}

// Register claims a seat in the section for the student. The seat claim and
// the registration row commit in one transaction; a full section surfaces as
// ErrSectionFull with nothing persisted.
func (s *RegistrationService) Register(ctx context.Context, req RegisterSectionRequest) (*models.SectionRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingParams.Code, appErrors.ErrMissingParams.Status, "student_id and section_id are required")
	}

	elig, err := s.eligibility.Require(ctx, req.StudentID, models.PhaseCourseRegistration)
	if err != nil {
		return nil, err
	}

	section, err := s.sections.FindSectionByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSectionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.SemesterID != elig.Semester.ID {
		return nil, appErrors.Clone(appErrors.ErrSectionNotFound, "section does not belong to the current semester")
	}

	exists, err := s.registrations.ExistsActive(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, fmt.Sprintf("already registered in section %s", section.Name))
	}

	registration := &models.SectionRegistration{
		StudentID:  req.StudentID,
		SectionID:  req.SectionID,
		SemesterID: elig.Semester.ID,
	}
	if err := s.registrations.Register(ctx, registration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if s.metrics != nil {
				s.metrics.IncSectionRegistration("full")
			}
			return nil, appErrors.Clone(appErrors.ErrSectionFull, fmt.Sprintf("section %s has no remaining seats", section.Name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register section")
	}
	if s.metrics != nil {
		s.metrics.IncSectionRegistration("registered")
	}

	detail := fmt.Sprintf("%s %s", section.CourseCode, section.Name)
	if err := s.history.Append(ctx, req.StudentID, elig.Semester.ID, models.HistoryActionRegister, detail); err != nil {
		s.logger.Warn("failed to append registration history",
			zap.String("student_id", req.StudentID),
			zap.Error(err))
	}

	s.logger.Info("section registered",
		zap.String("student_id", req.StudentID),
		zap.String("section_id", req.SectionID),
		zap.String("semester_id", elig.Semester.ID))
	return registration, nil
}

// Drop cancels the student's registration and releases the seat. Only the
// owning student may drop a registration.
func (s *RegistrationService) Drop(ctx context.Context, req DropSectionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMissingParams.Code, appErrors.ErrMissingParams.Status, "student_id and registration_id are required")
	}

	elig, err := s.eligibility.Require(ctx, req.StudentID, models.PhaseCourseRegistration)
	if err != nil {
		return err
	}

	registration, err := s.registrations.FindByID(ctx, req.RegistrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if registration.StudentID != req.StudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "registration belongs to another student")
	}
	if registration.Status != models.RegistrationStatusRegistered {
		return appErrors.Clone(appErrors.ErrConflict, "registration is not active")
	}

	if err := s.registrations.Cancel(ctx, registration.ID, registration.SectionID, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop registration")
	}
	if s.metrics != nil {
		s.metrics.IncSectionRegistration("dropped")
	}

	if err := s.history.Append(ctx, req.StudentID, elig.Semester.ID, models.HistoryActionDrop, registration.SectionID); err != nil {
		s.logger.Warn("failed to append drop history",
			zap.String("student_id", req.StudentID),
			zap.Error(err))
	}

	s.logger.Info("registration dropped",
		zap.String("student_id", req.StudentID),
		zap.String("registration_id", req.RegistrationID))
	return nil
}

// ListMine returns the student's active registrations for a semester.
func (s *RegistrationService) ListMine(ctx context.Context, studentID, semesterID string) ([]models.RegistrationDetail, error) {
	if studentID == "" || semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "studentId and semesterId are required")
	}
	registrations, err := s.registrations.ListActiveByStudentAndSemester(ctx, studentID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return registrations, nil
}

// History returns the student's registration action trail for a semester.
func (s *RegistrationService) History(ctx context.Context, studentID, semesterID string) ([]models.RegistrationHistoryEntry, error) {
	if studentID == "" || semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "studentId and semesterId are required")
	}
	entries, err := s.histories.ListEntries(ctx, studentID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registration history")
	}
	return entries, nil
}
