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

type mockSemesterRepo struct {
	semesters     map[string]*models.Semester
	created       []*models.Semester
	currentSet    []string
	deleted       []string
	registrations int
}

func (m *mockSemesterRepo) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	return nil, 0, nil
}

func (m *mockSemesterRepo) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if semester, ok := m.semesters[id]; ok {
		cp := *semester
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSemesterRepo) FindCurrent(ctx context.Context) (*models.Semester, error) {
	for _, semester := range m.semesters {
		if semester.IsCurrent {
			cp := *semester
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSemesterRepo) Create(ctx context.Context, semester *models.Semester) error {
	semester.ID = "sem-new"
	m.created = append(m.created, semester)
	return nil
}

func (m *mockSemesterRepo) Update(ctx context.Context, semester *models.Semester) error {
	if m.semesters == nil {
		m.semesters = make(map[string]*models.Semester)
	}
	cp := *semester
	m.semesters[semester.ID] = &cp
	return nil
}

func (m *mockSemesterRepo) SetCurrent(ctx context.Context, id string) error {
	m.currentSet = append(m.currentSet, id)
	return nil
}

func (m *mockSemesterRepo) CountRegistrations(ctx context.Context, id string) (int, error) {
	return m.registrations, nil
}

func (m *mockSemesterRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSemesterRepo) ListAcademicYears(ctx context.Context) ([]models.AcademicYear, error) {
	return nil, nil
}

type mockPhaseSeeder struct {
	seeded map[string][]string
}

func (m *mockPhaseSeeder) Seed(ctx context.Context, semesterID string, ids []string) error {
	if m.seeded == nil {
		m.seeded = make(map[string][]string)
	}
	m.seeded[semesterID] = ids
	return nil
}

func semesterRequest() CreateSemesterRequest {
	return CreateSemesterRequest{
		Name:           "2025-2026 HK1",
		Sequence:       1,
		AcademicYearID: "ay-1",
		StartDate:      time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestSemesterServiceCreateSeedsPhases(t *testing.T) {
	repo := &mockSemesterRepo{}
	seeder := &mockPhaseSeeder{}
	svc := NewSemesterService(repo, seeder, validator.New(), zap.NewNop())

	semester, err := svc.Create(context.Background(), semesterRequest())
	require.NoError(t, err)
	assert.Equal(t, "sem-new", semester.ID)
	require.Contains(t, seeder.seeded, "sem-new")
	assert.Len(t, seeder.seeded["sem-new"], 5, "one row per phase tag")
}

func TestSemesterServiceCreateInvalidSequence(t *testing.T) {
	repo := &mockSemesterRepo{}
	svc := NewSemesterService(repo, &mockPhaseSeeder{}, validator.New(), zap.NewNop())

	req := semesterRequest()
	req.Sequence = 4
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestSemesterServiceCreateDatesReversed(t *testing.T) {
	svc := NewSemesterService(&mockSemesterRepo{}, &mockPhaseSeeder{}, validator.New(), zap.NewNop())

	req := semesterRequest()
	req.EndDate = req.StartDate.AddDate(0, 0, -1)
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
}

func TestSemesterServiceSetCurrent(t *testing.T) {
	repo := &mockSemesterRepo{semesters: map[string]*models.Semester{
		"sem-1": {ID: "sem-1", Name: "HK1"},
	}}
	svc := NewSemesterService(repo, &mockPhaseSeeder{}, validator.New(), zap.NewNop())

	semester, err := svc.SetCurrent(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.True(t, semester.IsCurrent)
	assert.Equal(t, []string{"sem-1"}, repo.currentSet)
}

func TestSemesterServiceDeleteWithRegistrations(t *testing.T) {
	repo := &mockSemesterRepo{
		semesters:     map[string]*models.Semester{"sem-1": {ID: "sem-1"}},
		registrations: 12,
	}
	svc := NewSemesterService(repo, &mockPhaseSeeder{}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "sem-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestSemesterServiceDelete(t *testing.T) {
	repo := &mockSemesterRepo{semesters: map[string]*models.Semester{"sem-1": {ID: "sem-1"}}}
	svc := NewSemesterService(repo, &mockPhaseSeeder{}, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "sem-1"))
	assert.Equal(t, []string{"sem-1"}, repo.deleted)
}

func TestSemesterServiceCurrentMissing(t *testing.T) {
	svc := NewSemesterService(&mockSemesterRepo{}, &mockPhaseSeeder{}, validator.New(), zap.NewNop())

	_, err := svc.Current(context.Background())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNoCurrentSemester.Code, appErr.Code)
}
