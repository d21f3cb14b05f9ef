package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type declarationRepository interface {
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, declaration *models.EnrollmentDeclaration) error
	DeleteByIDs(ctx context.Context, studentID string, ids []string) (int, error)
	ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.DeclarationDetail, error)
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type eligibilityChecker interface {
	Check(ctx context.Context, studentID string, requiredTag models.PhaseTag) (*EligibilityResult, error)
	Require(ctx context.Context, studentID string, requiredTag models.PhaseTag) (*EligibilityResult, error)
}

type historyAppender interface {
	Append(ctx context.Context, studentID, semesterID, action, detail string) error
}

// DeclareRequest is the enrollment declaration payload.
type DeclareRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// CancelDeclarationsRequest identifies declarations to withdraw. An empty id
// list is a no-op that still succeeds.
type CancelDeclarationsRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	IDs       []string `json:"ids"`
}

// CancelDeclarationsResult reports how many declarations were removed.
// Cancellation is idempotent; already-absent ids simply do not count.
type CancelDeclarationsResult struct {
	Cancelled int `json:"cancelled"`
}

// EnrollmentService manages enrollment declarations made during the
// declaration phase, ahead of binding section registration.
type EnrollmentService struct {
	declarations declarationRepository
	courses      enrollmentCourseRepository
	eligibility  eligibilityChecker
	semesters    eligibilitySemesterRepository
	history      historyAppender
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(declarations declarationRepository, courses enrollmentCourseRepository, eligibility eligibilityChecker, semesters eligibilitySemesterRepository, history historyAppender, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		declarations: declarations,
		courses:      courses,
		eligibility:  eligibility,
		semesters:    semesters,
		history:      history,
		validator:    validate,
		logger:       logger,
	}
}

// CheckEligibility reports whether the student may declare right now.
func (s *EnrollmentService) CheckEligibility(ctx context.Context, studentID string) (*EligibilityResult, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "studentId is required")
	}
	return s.eligibility.Check(ctx, studentID, models.PhaseEnrollmentDeclaration)
}

// Declare records a student's declaration for a course in the current
// semester. The course must exist and be open, and the student may hold at
// most one declaration per course.
func (s *EnrollmentService) Declare(ctx context.Context, req DeclareRequest) (*models.EnrollmentDeclaration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingParams.Code, appErrors.ErrMissingParams.Status, "student_id and course_id are required")
	}

	elig, err := s.eligibility.Require(ctx, req.StudentID, models.PhaseEnrollmentDeclaration)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Open {
		return nil, appErrors.Clone(appErrors.ErrCourseClosed, fmt.Sprintf("course %s is closed for enrollment", course.Code))
	}

	exists, err := s.declarations.ExistsByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing declaration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, fmt.Sprintf("course %s is already declared", course.Code))
	}

	declaration := &models.EnrollmentDeclaration{
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		SemesterID: elig.Semester.ID,
	}
	if err := s.declarations.Create(ctx, declaration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create declaration")
	}

	if err := s.history.Append(ctx, req.StudentID, elig.Semester.ID, models.HistoryActionDeclare, course.Code); err != nil {
		s.logger.Warn("failed to append declaration history",
			zap.String("student_id", req.StudentID),
			zap.Error(err))
	}

	s.logger.Info("enrollment declared",
		zap.String("student_id", req.StudentID),
		zap.String("course_code", course.Code),
		zap.String("semester_id", elig.Semester.ID))
	return declaration, nil
}

// Cancel withdraws the given declarations. Ids that no longer exist are
// ignored; the returned count reflects what was actually removed. Unlike
// Declare, cancellation is not phase-gated: a student may withdraw at any
// time.
func (s *EnrollmentService) Cancel(ctx context.Context, req CancelDeclarationsRequest) (*CancelDeclarationsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingParams.Code, appErrors.ErrMissingParams.Status, "student_id is required")
	}

	cancelled, err := s.declarations.DeleteByIDs(ctx, req.StudentID, req.IDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel declarations")
	}

	if cancelled > 0 {
		detail := fmt.Sprintf("cancelled %d declaration(s)", cancelled)
		semester, err := s.semesters.FindCurrent(ctx)
		if err != nil {
			s.logger.Warn("failed to resolve semester for cancellation history",
				zap.String("student_id", req.StudentID),
				zap.Error(err))
		} else if err := s.history.Append(ctx, req.StudentID, semester.ID, models.HistoryActionCancelDeclare, detail); err != nil {
			s.logger.Warn("failed to append cancellation history",
				zap.String("student_id", req.StudentID),
				zap.Error(err))
		}
	}

	return &CancelDeclarationsResult{Cancelled: cancelled}, nil
}

// ListMine returns the student's declarations for a semester.
func (s *EnrollmentService) ListMine(ctx context.Context, studentID, semesterID string) ([]models.DeclarationDetail, error) {
	if studentID == "" || semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "studentId and semesterId are required")
	}
	declarations, err := s.declarations.ListByStudent(ctx, studentID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list declarations")
	}
	return declarations, nil
}
