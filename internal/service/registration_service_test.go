package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type mockRegistrationRepo struct {
	registrations map[string]*models.SectionRegistration
	activeExists  bool
	registerErr   error
	registered    []*models.SectionRegistration
	cancelled     []string
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id string) (*models.SectionRegistration, error) {
	if registration, ok := m.registrations[id]; ok {
		cp := *registration
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationRepo) ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error) {
	return m.activeExists, nil
}

func (m *mockRegistrationRepo) Register(ctx context.Context, registration *models.SectionRegistration) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	registration.ID = "reg-1"
	registration.Status = models.RegistrationStatusRegistered
	m.registered = append(m.registered, registration)
	return nil
}

func (m *mockRegistrationRepo) Cancel(ctx context.Context, id, sectionID string, cancelledAt time.Time) error {
	m.cancelled = append(m.cancelled, id)
	return nil
}

func (m *mockRegistrationRepo) ListActiveByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.RegistrationDetail, error) {
	return nil, nil
}

type mockSectionRepo struct {
	sections map[string]*models.SectionDetail
}

func (m *mockSectionRepo) FindSectionByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if section, ok := m.sections[id]; ok {
		return section, nil
	}
	return nil, sql.ErrNoRows
}

type mockHistoryReader struct {
	entries []models.RegistrationHistoryEntry
}

func (m *mockHistoryReader) ListEntries(ctx context.Context, studentID, semesterID string) ([]models.RegistrationHistoryEntry, error) {
	return m.entries, nil
}

type mockRegMetrics struct {
	outcomes []string
}

func (m *mockRegMetrics) IncSectionRegistration(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func registrationEligible() *mockEligibility {
	return &mockEligibility{result: &EligibilityResult{
		Eligible: true,
		Semester: &models.Semester{ID: "sem-1"},
		Phase:    &models.RegistrationPhase{Tag: models.PhaseCourseRegistration},
	}}
}

func sectionFixture() *mockSectionRepo {
	return &mockSectionRepo{sections: map[string]*models.SectionDetail{
		"sec-1": {
			CourseSection: models.CourseSection{ID: "sec-1", SemesterID: "sem-1", Name: "N01", MaxCount: 60},
			CourseCode:    "INT1001",
		},
	}}
}

func TestRegistrationServiceRegister(t *testing.T) {
	repo := &mockRegistrationRepo{}
	metrics := &mockRegMetrics{}
	history := &mockHistory{}
	svc := NewRegistrationService(repo, sectionFixture(), registrationEligible(), history, &mockHistoryReader{}, metrics, validator.New(), zap.NewNop())

	registration, err := svc.Register(context.Background(), RegisterSectionRequest{StudentID: "st-1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, "sem-1", registration.SemesterID)
	assert.Equal(t, models.RegistrationStatusRegistered, registration.Status)
	assert.Equal(t, []string{"registered"}, metrics.outcomes)
	assert.Equal(t, []string{models.HistoryActionRegister}, history.entries)
}

func TestRegistrationServiceRegisterSectionFull(t *testing.T) {
	repo := &mockRegistrationRepo{registerErr: sql.ErrNoRows}
	metrics := &mockRegMetrics{}
	svc := NewRegistrationService(repo, sectionFixture(), registrationEligible(), &mockHistory{}, &mockHistoryReader{}, metrics, validator.New(), zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterSectionRequest{StudentID: "st-1", SectionID: "sec-1"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSectionFull.Code, appErr.Code)
	assert.Equal(t, []string{"full"}, metrics.outcomes)
}

func TestRegistrationServiceRegisterWrongSemester(t *testing.T) {
	sections := &mockSectionRepo{sections: map[string]*models.SectionDetail{
		"sec-old": {CourseSection: models.CourseSection{ID: "sec-old", SemesterID: "sem-0", Name: "N01"}},
	}}
	repo := &mockRegistrationRepo{}
	svc := NewRegistrationService(repo, sections, registrationEligible(), &mockHistory{}, &mockHistoryReader{}, &mockRegMetrics{}, validator.New(), zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterSectionRequest{StudentID: "st-1", SectionID: "sec-old"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSectionNotFound.Code, appErr.Code)
	assert.Empty(t, repo.registered)
}

func TestRegistrationServiceRegisterAlreadyRegistered(t *testing.T) {
	repo := &mockRegistrationRepo{activeExists: true}
	svc := NewRegistrationService(repo, sectionFixture(), registrationEligible(), &mockHistory{}, &mockHistoryReader{}, &mockRegMetrics{}, validator.New(), zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterSectionRequest{StudentID: "st-1", SectionID: "sec-1"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyRegistered.Code, appErr.Code)
}

func TestRegistrationServiceDrop(t *testing.T) {
	repo := &mockRegistrationRepo{registrations: map[string]*models.SectionRegistration{
		"reg-1": {ID: "reg-1", StudentID: "st-1", SectionID: "sec-1", Status: models.RegistrationStatusRegistered},
	}}
	metrics := &mockRegMetrics{}
	history := &mockHistory{}
	svc := NewRegistrationService(repo, sectionFixture(), registrationEligible(), history, &mockHistoryReader{}, metrics, validator.New(), zap.NewNop())

	err := svc.Drop(context.Background(), DropSectionRequest{StudentID: "st-1", RegistrationID: "reg-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"reg-1"}, repo.cancelled)
	assert.Equal(t, []string{"dropped"}, metrics.outcomes)
	assert.Equal(t, []string{models.HistoryActionDrop}, history.entries)
}

func TestRegistrationServiceDropOtherStudent(t *testing.T) {
	repo := &mockRegistrationRepo{registrations: map[string]*models.SectionRegistration{
		"reg-1": {ID: "reg-1", StudentID: "st-2", SectionID: "sec-1", Status: models.RegistrationStatusRegistered},
	}}
	svc := NewRegistrationService(repo, sectionFixture(), registrationEligible(), &mockHistory{}, &mockHistoryReader{}, &mockRegMetrics{}, validator.New(), zap.NewNop())

	err := svc.Drop(context.Background(), DropSectionRequest{StudentID: "st-1", RegistrationID: "reg-1"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, repo.cancelled)
}

func TestRegistrationServiceDropCancelledRegistration(t *testing.T) {
	repo := &mockRegistrationRepo{registrations: map[string]*models.SectionRegistration{
		"reg-1": {ID: "reg-1", StudentID: "st-1", SectionID: "sec-1", Status: models.RegistrationStatusCancelled},
	}}
	svc := NewRegistrationService(repo, sectionFixture(), registrationEligible(), &mockHistory{}, &mockHistoryReader{}, &mockRegMetrics{}, validator.New(), zap.NewNop())

	err := svc.Drop(context.Background(), DropSectionRequest{StudentID: "st-1", RegistrationID: "reg-1"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}
