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
	"github.com/noah-isme/uni-registration-api/pkg/export"
)

type mockTuitionRepo struct {
	existing      *models.TuitionDetail
	policy        *models.TuitionPolicy
	replaced      *models.TuitionRecord
	replacedItems []models.TuitionLineItem
}

func (m *mockTuitionRepo) FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error) {
	if m.existing == nil {
		return nil, sql.ErrNoRows
	}
	return m.existing, nil
}

func (m *mockTuitionRepo) Replace(ctx context.Context, record *models.TuitionRecord, items []models.TuitionLineItem) error {
	m.replaced = record
	m.replacedItems = items
	return nil
}

func (m *mockTuitionRepo) FindPolicy(ctx context.Context, programID, facultyID, semesterID string) (*models.TuitionPolicy, error) {
	if m.policy == nil {
		return nil, sql.ErrNoRows
	}
	return m.policy, nil
}

type mockTuitionRegistrations struct {
	registrations []models.RegistrationDetail
}

func (m *mockTuitionRegistrations) ListActiveByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.RegistrationDetail, error) {
	return m.registrations, nil
}

type mockTuitionStudents struct {
	student *models.StudentDetail
}

func (m *mockTuitionStudents) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type mockInvoiceExporter struct {
	title   string
	summary []string
}

func (m *mockInvoiceExporter) RenderWithSummary(data export.Dataset, title string, summary []string) ([]byte, error) {
	m.title = title
	m.summary = summary
	return []byte("%PDF-1.4"), nil
}

func tuitionFixture() (*mockTuitionRepo, *mockTuitionRegistrations, *mockTuitionStudents) {
	repo := &mockTuitionRepo{policy: &models.TuitionPolicy{ID: "pol-1", CreditRate: 500000}}
	registrations := &mockTuitionRegistrations{registrations: []models.RegistrationDetail{
		{SectionRegistration: models.SectionRegistration{SectionID: "sec-1"}, CourseName: "Algorithms", Credits: 3},
		{SectionRegistration: models.SectionRegistration{SectionID: "sec-2"}, CourseName: "Databases", Credits: 4},
	}}
	students := &mockTuitionStudents{student: &models.StudentDetail{
		Student: models.Student{ID: "st-1", Code: "SV001", FullName: "Nguyen Van A", FacultyID: "fac-1", ProgramID: "prog-1"},
	}}
	return repo, registrations, students
}

func TestTuitionServiceCompute(t *testing.T) {
	repo, registrations, students := tuitionFixture()
	svc := NewTuitionService(repo, registrations, students, &mockInvoiceExporter{}, zap.NewNop())

	detail, err := svc.Compute(context.Background(), "st-1", "sem-1")
	require.NoError(t, err)
	assert.Equal(t, float64(7)*500000, detail.Total)
	assert.Len(t, detail.Items, 2)
	assert.Equal(t, detail.Total, repo.replaced.Total)
	assert.Equal(t, 3*500000.0, detail.Items[0].Amount)
}

func TestTuitionServiceComputePreservesPaidState(t *testing.T) {
	repo, registrations, students := tuitionFixture()
	paidAt := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	repo.existing = &models.TuitionDetail{TuitionRecord: models.TuitionRecord{
		ID:     "tui-1",
		Status: models.TuitionStatusPaid,
		PaidAt: &paidAt,
	}}
	svc := NewTuitionService(repo, registrations, students, &mockInvoiceExporter{}, zap.NewNop())

	detail, err := svc.Compute(context.Background(), "st-1", "sem-1")
	require.NoError(t, err)
	assert.Equal(t, "tui-1", detail.ID)
	assert.Equal(t, models.TuitionStatusPaid, detail.Status)
	require.NotNil(t, detail.PaidAt)
	assert.Equal(t, paidAt, *detail.PaidAt)
}

func TestTuitionServiceComputeNoPolicy(t *testing.T) {
	repo, registrations, students := tuitionFixture()
	repo.policy = nil
	svc := NewTuitionService(repo, registrations, students, &mockInvoiceExporter{}, zap.NewNop())

	_, err := svc.Compute(context.Background(), "st-1", "sem-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Nil(t, repo.replaced)
}

func TestTuitionServiceGetNotFound(t *testing.T) {
	repo, registrations, students := tuitionFixture()
	svc := NewTuitionService(repo, registrations, students, &mockInvoiceExporter{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "st-1", "sem-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrTuitionNotFound.Code, appErr.Code)
}

func TestTuitionServiceExportInvoice(t *testing.T) {
	repo, registrations, students := tuitionFixture()
	repo.existing = &models.TuitionDetail{
		TuitionRecord: models.TuitionRecord{ID: "tui-1", Total: 3500000, Status: models.TuitionStatusUnpaid},
		Items: []models.TuitionLineItem{
			{CourseName: "Algorithms", Credits: 3, CreditRate: 500000, Amount: 1500000},
		},
	}
	invoices := &mockInvoiceExporter{}
	svc := NewTuitionService(repo, registrations, students, invoices, zap.NewNop())

	pdf, filename, err := svc.ExportInvoice(context.Background(), "st-1", "sem-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "invoice_SV001_sem-1.pdf", filename)
	assert.Contains(t, invoices.title, "Nguyen Van A")
	assert.Contains(t, invoices.summary[0], "3500000")
}
