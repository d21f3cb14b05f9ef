package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type eligibilityStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type eligibilitySemesterRepository interface {
	FindCurrent(ctx context.Context) (*models.Semester, error)
}

type eligibilityPhaseResolver interface {
	Current(ctx context.Context, semesterID string) (*models.RegistrationPhase, error)
}

type eligibilityWindowRepository interface {
	FindOpenInstitution(ctx context.Context, semesterID string, tag models.PhaseTag, now time.Time) (*models.RegistrationWindow, error)
	FindOpenFaculty(ctx context.Context, semesterID string, tag models.PhaseTag, facultyID string, now time.Time) (*models.RegistrationWindow, error)
}

// EligibilityResult is the outcome of an eligibility check. When Eligible is
// false, Reason carries the blocking error code and Message explains it.
type EligibilityResult struct {
	Eligible bool                       `json:"eligible"`
	Reason   string                     `json:"reason,omitempty"`
	Message  string                     `json:"message,omitempty"`
	Student  *models.StudentDetail      `json:"student,omitempty"`
	Semester *models.Semester           `json:"semester,omitempty"`
	Phase    *models.RegistrationPhase  `json:"phase,omitempty"`
	Window   *models.RegistrationWindow `json:"window,omitempty"`
}

// EligibilityService answers whether a student may act in the current phase.
// The check chain is fixed: student, current semester, active phase, phase tag
// match, then an open window. An institution-wide window satisfies the check
// before any faculty window is consulted.
type EligibilityService struct {
	students  eligibilityStudentRepository
	semesters eligibilitySemesterRepository
	phases    eligibilityPhaseResolver
	windows   eligibilityWindowRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewEligibilityService constructs EligibilityService.
func NewEligibilityService(students eligibilityStudentRepository, semesters eligibilitySemesterRepository, phases eligibilityPhaseResolver, windows eligibilityWindowRepository, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		students:  students,
		semesters: semesters,
		phases:    phases,
		windows:   windows,
		logger:    logger,
		now:       time.Now,
	}
}

// Check runs the full chain for the given student and required phase tag.
// Infrastructure failures surface as errors; a blocked student comes back as
// an ineligible result, never an error.
func (s *EligibilityService) Check(ctx context.Context, studentID string, requiredTag models.PhaseTag) (*EligibilityResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ineligible(appErrors.ErrStudentNotFound, ""), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	// A student without a faculty can never match a window; treat the record
	// as incomplete rather than walking the rest of the chain.
	if student.FacultyID == "" {
		return ineligible(appErrors.ErrStudentNotFound, "student has no faculty assignment"), nil
	}

	semester, err := s.semesters.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ineligible(appErrors.ErrNoCurrentSemester, ""), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current semester")
	}

	phase, err := s.phases.Current(ctx, semester.ID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNoActivePhase.Code {
			res := ineligible(appErrors.ErrNoActivePhase, "")
			res.Student = student
			res.Semester = semester
			return res, nil
		}
		return nil, err
	}

	if phase.Tag != requiredTag {
		res := ineligible(appErrors.ErrWrongPhase, "current phase is "+string(phase.Tag))
		res.Student = student
		res.Semester = semester
		res.Phase = phase
		return res, nil
	}

	window, err := s.openWindow(ctx, semester.ID, requiredTag, student.FacultyID)
	if err != nil {
		return nil, err
	}
	if window == nil {
		res := ineligible(appErrors.ErrNoOpenWindow, "")
		res.Student = student
		res.Semester = semester
		res.Phase = phase
		return res, nil
	}

	return &EligibilityResult{
		Eligible: true,
		Student:  student,
		Semester: semester,
		Phase:    phase,
		Window:   window,
	}, nil
}

// Require runs Check and converts an ineligible result into its domain error.
// Write paths use it so eligibility failures and handler responses share codes.
func (s *EligibilityService) Require(ctx context.Context, studentID string, requiredTag models.PhaseTag) (*EligibilityResult, error) {
	result, err := s.Check(ctx, studentID, requiredTag)
	if err != nil {
		return nil, err
	}
	if !result.Eligible {
		return nil, appErrors.New(result.Reason, statusForReason(result.Reason), result.Message)
	}
	return result, nil
}

func (s *EligibilityService) openWindow(ctx context.Context, semesterID string, tag models.PhaseTag, facultyID string) (*models.RegistrationWindow, error) {
	now := s.now().UTC()

	window, err := s.windows.FindOpenInstitution(ctx, semesterID, tag, now)
	if err == nil {
		return window, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up institution window")
	}

	window, err = s.windows.FindOpenFaculty(ctx, semesterID, tag, facultyID, now)
	if err == nil {
		return window, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up faculty window")
	}
	return nil, nil
}

func ineligible(base *appErrors.Error, message string) *EligibilityResult {
	if message == "" {
		message = base.Message
	}
	return &EligibilityResult{Eligible: false, Reason: base.Code, Message: message}
}

func statusForReason(code string) int {
	for _, e := range []*appErrors.Error{
		appErrors.ErrStudentNotFound,
		appErrors.ErrNoCurrentSemester,
		appErrors.ErrNoActivePhase,
		appErrors.ErrWrongPhase,
		appErrors.ErrNoOpenWindow,
	} {
		if e.Code == code {
			return e.Status
		}
	}
	return appErrors.ErrConflict.Status
}
