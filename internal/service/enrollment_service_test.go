package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type mockEligibility struct {
	result     *EligibilityResult
	requireErr error
}

func (m *mockEligibility) Check(ctx context.Context, studentID string, requiredTag models.PhaseTag) (*EligibilityResult, error) {
	return m.result, nil
}

func (m *mockEligibility) Require(ctx context.Context, studentID string, requiredTag models.PhaseTag) (*EligibilityResult, error) {
	if m.requireErr != nil {
		return nil, m.requireErr
	}
	return m.result, nil
}

type mockHistory struct {
	entries []string
	err     error
}

func (m *mockHistory) Append(ctx context.Context, studentID, semesterID, action, detail string) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, action)
	return nil
}

type mockDeclarationRepo struct {
	existing map[string]bool
	created  []*models.EnrollmentDeclaration
	deleted  int
	list     []models.DeclarationDetail
}

func (m *mockDeclarationRepo) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	return m.existing[studentID+":"+courseID], nil
}

func (m *mockDeclarationRepo) Create(ctx context.Context, declaration *models.EnrollmentDeclaration) error {
	declaration.ID = "decl-1"
	m.created = append(m.created, declaration)
	return nil
}

func (m *mockDeclarationRepo) DeleteByIDs(ctx context.Context, studentID string, ids []string) (int, error) {
	return m.deleted, nil
}

func (m *mockDeclarationRepo) ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.DeclarationDetail, error) {
	return m.list, nil
}

type mockEnrollmentCourseRepo struct {
	courses map[string]*models.Course
}

func (m *mockEnrollmentCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func currentSemester() *mockEligSemesterRepo {
	return &mockEligSemesterRepo{current: &models.Semester{ID: "sem-1", IsCurrent: true}}
}

func eligibleResult() *EligibilityResult {
	return &EligibilityResult{
		Eligible: true,
		Semester: &models.Semester{ID: "sem-1"},
		Phase:    &models.RegistrationPhase{Tag: models.PhaseEnrollmentDeclaration},
	}
}

func TestEnrollmentServiceDeclare(t *testing.T) {
	declarations := &mockDeclarationRepo{}
	courses := &mockEnrollmentCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "INT1001", Open: true},
	}}
	history := &mockHistory{}
	svc := NewEnrollmentService(declarations, courses, &mockEligibility{result: eligibleResult()}, currentSemester(), history, validator.New(), zap.NewNop())

	declaration, err := svc.Declare(context.Background(), DeclareRequest{StudentID: "st-1", CourseID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "sem-1", declaration.SemesterID)
	assert.Len(t, declarations.created, 1)
	assert.Equal(t, []string{models.HistoryActionDeclare}, history.entries)
}

func TestEnrollmentServiceDeclareIneligible(t *testing.T) {
	declarations := &mockDeclarationRepo{}
	courses := &mockEnrollmentCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "INT1001", Open: true},
	}}
	eligibility := &mockEligibility{requireErr: appErrors.ErrNoOpenWindow}
	svc := NewEnrollmentService(declarations, courses, eligibility, currentSemester(), &mockHistory{}, validator.New(), zap.NewNop())

	_, err := svc.Declare(context.Background(), DeclareRequest{StudentID: "st-1", CourseID: "c1"})
	require.Error(t, err)
	assert.Empty(t, declarations.created)
}

func TestEnrollmentServiceDeclareCourseClosed(t *testing.T) {
	courses := &mockEnrollmentCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "INT1001", Open: false},
	}}
	svc := NewEnrollmentService(&mockDeclarationRepo{}, courses, &mockEligibility{result: eligibleResult()}, currentSemester(), &mockHistory{}, validator.New(), zap.NewNop())

	_, err := svc.Declare(context.Background(), DeclareRequest{StudentID: "st-1", CourseID: "c1"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrCourseClosed.Code, appErr.Code)
}

func TestEnrollmentServiceDeclareDuplicate(t *testing.T) {
	declarations := &mockDeclarationRepo{existing: map[string]bool{"st-1:c1": true}}
	courses := &mockEnrollmentCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "INT1001", Open: true},
	}}
	svc := NewEnrollmentService(declarations, courses, &mockEligibility{result: eligibleResult()}, currentSemester(), &mockHistory{}, validator.New(), zap.NewNop())

	_, err := svc.Declare(context.Background(), DeclareRequest{StudentID: "st-1", CourseID: "c1"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyRegistered.Code, appErr.Code)
}

func TestEnrollmentServiceCancelIdempotent(t *testing.T) {
	declarations := &mockDeclarationRepo{deleted: 0}
	history := &mockHistory{}
	svc := NewEnrollmentService(declarations, &mockEnrollmentCourseRepo{}, &mockEligibility{result: eligibleResult()}, currentSemester(), history, validator.New(), zap.NewNop())

	result, err := svc.Cancel(context.Background(), CancelDeclarationsRequest{StudentID: "st-1", IDs: []string{"gone-1", "gone-2"}})
	require.NoError(t, err)
	assert.Zero(t, result.Cancelled)
	assert.Empty(t, history.entries, "no history entry when nothing was removed")
}

func TestEnrollmentServiceCancel(t *testing.T) {
	declarations := &mockDeclarationRepo{deleted: 2}
	history := &mockHistory{}
	svc := NewEnrollmentService(declarations, &mockEnrollmentCourseRepo{}, &mockEligibility{result: eligibleResult()}, currentSemester(), history, validator.New(), zap.NewNop())

	result, err := svc.Cancel(context.Background(), CancelDeclarationsRequest{StudentID: "st-1", IDs: []string{"d1", "d2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Cancelled)
	assert.Equal(t, []string{models.HistoryActionCancelDeclare}, history.entries)
}

func TestEnrollmentServiceCancelOutsideDeclarationPhase(t *testing.T) {
	declarations := &mockDeclarationRepo{deleted: 1}
	history := &mockHistory{}
	eligibility := &mockEligibility{requireErr: appErrors.ErrWrongPhase}
	svc := NewEnrollmentService(declarations, &mockEnrollmentCourseRepo{}, eligibility, currentSemester(), history, validator.New(), zap.NewNop())

	result, err := svc.Cancel(context.Background(), CancelDeclarationsRequest{StudentID: "st-1", IDs: []string{"d1"}})
	require.NoError(t, err, "cancellation is not phase-gated")
	assert.Equal(t, 1, result.Cancelled)
	assert.Equal(t, []string{models.HistoryActionCancelDeclare}, history.entries)
}

func TestEnrollmentServiceCancelEmptyIDs(t *testing.T) {
	declarations := &mockDeclarationRepo{deleted: 0}
	svc := NewEnrollmentService(declarations, &mockEnrollmentCourseRepo{}, &mockEligibility{result: eligibleResult()}, currentSemester(), &mockHistory{}, validator.New(), zap.NewNop())

	result, err := svc.Cancel(context.Background(), CancelDeclarationsRequest{StudentID: "st-1"})
	require.NoError(t, err)
	assert.Zero(t, result.Cancelled)
}

func TestEnrollmentServiceDeclareHistoryFailureIsNonFatal(t *testing.T) {
	declarations := &mockDeclarationRepo{}
	courses := &mockEnrollmentCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "INT1001", Open: true},
	}}
	history := &mockHistory{err: assert.AnError}
	svc := NewEnrollmentService(declarations, courses, &mockEligibility{result: eligibleResult()}, currentSemester(), history, validator.New(), zap.NewNop())

	_, err := svc.Declare(context.Background(), DeclareRequest{StudentID: "st-1", CourseID: "c1"})
	require.NoError(t, err)
	assert.Len(t, declarations.created, 1)
}
