package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type mockEligStudentRepo struct {
	students map[string]*models.StudentDetail
}

func (m *mockEligStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := m.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type mockEligSemesterRepo struct {
	current *models.Semester
}

func (m *mockEligSemesterRepo) FindCurrent(ctx context.Context) (*models.Semester, error) {
	if m.current == nil {
		return nil, sql.ErrNoRows
	}
	return m.current, nil
}

type mockEligPhaseResolver struct {
	phase *models.RegistrationPhase
	err   error
}

func (m *mockEligPhaseResolver) Current(ctx context.Context, semesterID string) (*models.RegistrationPhase, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.phase, nil
}

type mockEligWindowRepo struct {
	institution      *models.RegistrationWindow
	faculty          *models.RegistrationWindow
	facultyConsulted bool
}

func (m *mockEligWindowRepo) FindOpenInstitution(ctx context.Context, semesterID string, tag models.PhaseTag, now time.Time) (*models.RegistrationWindow, error) {
	if m.institution == nil {
		return nil, sql.ErrNoRows
	}
	return m.institution, nil
}

func (m *mockEligWindowRepo) FindOpenFaculty(ctx context.Context, semesterID string, tag models.PhaseTag, facultyID string, now time.Time) (*models.RegistrationWindow, error) {
	m.facultyConsulted = true
	if m.faculty == nil {
		return nil, sql.ErrNoRows
	}
	return m.faculty, nil
}

func eligFixture() (*mockEligStudentRepo, *mockEligSemesterRepo, *mockEligPhaseResolver, *mockEligWindowRepo) {
	students := &mockEligStudentRepo{students: map[string]*models.StudentDetail{
		"st-1": {Student: models.Student{ID: "st-1", Code: "SV001", FacultyID: "fac-1", Active: true}},
	}}
	semesters := &mockEligSemesterRepo{current: &models.Semester{ID: "sem-1", IsCurrent: true}}
	phases := &mockEligPhaseResolver{phase: &models.RegistrationPhase{
		ID:      "p1",
		Tag:     models.PhaseCourseRegistration,
		Enabled: true,
	}}
	windows := &mockEligWindowRepo{institution: &models.RegistrationWindow{
		ID:    "w1",
		Scope: models.ScopeInstitution,
	}}
	return students, semesters, phases, windows
}

func TestEligibilityCheckEligible(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, "sem-1", result.Semester.ID)
	assert.Equal(t, "w1", result.Window.ID)
	assert.False(t, windows.facultyConsulted, "institution window must short-circuit the faculty lookup")
}

func TestEligibilityCheckStudentNotFound(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "missing", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, result.Reason)
}

func TestEligibilityCheckStudentWithoutFaculty(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	students.students["st-1"].FacultyID = ""
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, result.Reason)
	assert.False(t, windows.facultyConsulted)
}

func TestEligibilityCheckNoCurrentSemester(t *testing.T) {
	students, _, phases, windows := eligFixture()
	svc := NewEligibilityService(students, &mockEligSemesterRepo{}, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, appErrors.ErrNoCurrentSemester.Code, result.Reason)
}

func TestEligibilityCheckNoActivePhase(t *testing.T) {
	students, semesters, _, windows := eligFixture()
	phases := &mockEligPhaseResolver{err: appErrors.ErrNoActivePhase}
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, appErrors.ErrNoActivePhase.Code, result.Reason)
	assert.NotNil(t, result.Semester)
}

func TestEligibilityCheckWrongPhase(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	phases.phase.Tag = models.PhaseEnrollmentDeclaration
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, appErrors.ErrWrongPhase.Code, result.Reason)
	assert.Contains(t, result.Message, string(models.PhaseEnrollmentDeclaration))
}

func TestEligibilityCheckFacultyWindowFallback(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	windows.institution = nil
	facultyID := "fac-1"
	windows.faculty = &models.RegistrationWindow{ID: "w2", Scope: models.ScopeFaculty, FacultyID: &facultyID}
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, "w2", result.Window.ID)
	assert.True(t, windows.facultyConsulted)
}

func TestEligibilityCheckNoOpenWindow(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	windows.institution = nil
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Check(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, appErrors.ErrNoOpenWindow.Code, result.Reason)
}

func TestEligibilityRequireConvertsToError(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	windows.institution = nil
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	_, err := svc.Require(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoOpenWindow.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrNoOpenWindow.Status, appErr.Status)
}

func TestEligibilityRequirePassesThrough(t *testing.T) {
	students, semesters, phases, windows := eligFixture()
	svc := NewEligibilityService(students, semesters, phases, windows, zap.NewNop())

	result, err := svc.Require(context.Background(), "st-1", models.PhaseCourseRegistration)
	require.NoError(t, err)
	assert.True(t, result.Eligible)
}
