package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/export"
)

type tuitionRepository interface {
	FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error)
	Replace(ctx context.Context, record *models.TuitionRecord, items []models.TuitionLineItem) error
	FindPolicy(ctx context.Context, programID, facultyID, semesterID string) (*models.TuitionPolicy, error)
}

type tuitionRegistrationLister interface {
	ListActiveByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.RegistrationDetail, error)
}

type tuitionStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type invoiceExporter interface {
	RenderWithSummary(data export.Dataset, title string, summary []string) ([]byte, error)
}

// TuitionService computes and serves per (student, semester) tuition bills.
// Computation is idempotent: each run rebuilds the line items from the active
// registrations and the applicable credit-rate policy.
type TuitionService struct {
	tuition       tuitionRepository
	registrations tuitionRegistrationLister
	students      tuitionStudentRepository
	invoices      invoiceExporter
	logger        *zap.Logger
}

// NewTuitionService constructs TuitionService.
func NewTuitionService(tuition tuitionRepository, registrations tuitionRegistrationLister, students tuitionStudentRepository, invoices invoiceExporter, logger *zap.Logger) *TuitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TuitionService{
		tuition:       tuition,
		registrations: registrations,
		students:      students,
		invoices:      invoices,
		logger:        logger,
	}
}

// Compute rebuilds the tuition bill for (student, semester) from the active
// registrations. A paid bill keeps its status and paid timestamp.
func (s *TuitionService) Compute(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error) {
	if studentID == "" || semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "studentId and semesterId are required")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	policy, err := s.tuition.FindPolicy(ctx, student.ProgramID, student.FacultyID, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no tuition policy applies to this student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve tuition policy")
	}

	registrations, err := s.registrations.ListActiveByStudentAndSemester(ctx, studentID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}

	items := make([]models.TuitionLineItem, 0, len(registrations))
	total := 0.0
	for _, reg := range registrations {
		amount := float64(reg.Credits) * policy.CreditRate
		items = append(items, models.TuitionLineItem{
			SectionID:  reg.SectionID,
			CourseName: reg.CourseName,
			Credits:    reg.Credits,
			CreditRate: policy.CreditRate,
			Amount:     amount,
		})
		total += amount
	}

	record := &models.TuitionRecord{
		StudentID:  studentID,
		SemesterID: semesterID,
		Total:      total,
	}
	if existing, err := s.tuition.FindByStudentAndSemester(ctx, studentID, semesterID); err == nil {
		record.ID = existing.ID
		record.Status = existing.Status
		record.PaidAt = existing.PaidAt
		record.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tuition record")
	}

	if err := s.tuition.Replace(ctx, record, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store tuition record")
	}

	s.logger.Info("tuition computed",
		zap.String("student_id", studentID),
		zap.String("semester_id", semesterID),
		zap.Float64("total", total),
		zap.Int("items", len(items)))

	return &models.TuitionDetail{TuitionRecord: *record, Items: items}, nil
}

// Get returns the stored tuition bill with its line items.
func (s *TuitionService) Get(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error) {
	if studentID == "" || semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "studentId and semesterId are required")
	}
	detail, err := s.tuition.FindByStudentAndSemester(ctx, studentID, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTuitionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tuition record")
	}
	return detail, nil
}

// ExportInvoice renders the tuition bill as a PDF invoice.
func (s *TuitionService) ExportInvoice(ctx context.Context, studentID, semesterID string) ([]byte, string, error) {
	detail, err := s.Get(ctx, studentID, semesterID)
	if err != nil {
		return nil, "", err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.ErrStudentNotFound
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	data := export.Dataset{
		Headers: []string{"Course", "Credits", "Rate", "Amount"},
	}
	for _, item := range detail.Items {
		data.Rows = append(data.Rows, map[string]string{
			"Course":  item.CourseName,
			"Credits": fmt.Sprintf("%d", item.Credits),
			"Rate":    fmt.Sprintf("%.2f", item.CreditRate),
			"Amount":  fmt.Sprintf("%.2f", item.Amount),
		})
	}

	summary := []string{
		fmt.Sprintf("Total: %.2f", detail.Total),
		fmt.Sprintf("Status: %s", detail.Status),
	}
	if detail.PaidAt != nil {
		summary = append(summary, "Paid at: "+detail.PaidAt.Format(time.RFC3339))
	}

	title := fmt.Sprintf("Tuition Invoice - %s (%s)", student.FullName, student.Code)
	pdf, err := s.invoices.RenderWithSummary(data, title, summary)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render invoice")
	}

	filename := fmt.Sprintf("invoice_%s_%s.pdf", student.Code, semesterID)
	return pdf, filename, nil
}
