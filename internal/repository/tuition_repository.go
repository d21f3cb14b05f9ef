package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// TuitionRepository handles persistence of tuition records and policies.
type TuitionRepository struct {
	db *sqlx.DB
}

// NewTuitionRepository constructs the repository.
func NewTuitionRepository(db *sqlx.DB) *TuitionRepository {
	return &TuitionRepository{db: db}
}

// FindByStudentAndSemester returns the tuition record with line items.
func (r *TuitionRepository) FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error) {
	const query = `SELECT id, student_id, semester_id, total, status, paid_at, created_at, updated_at FROM tuition_records WHERE student_id = $1 AND semester_id = $2`
	var record models.TuitionRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, semesterID); err != nil {
		return nil, err
	}

	const itemsQuery = `SELECT id, tuition_id, section_id, course_name, credits, credit_rate, amount FROM tuition_line_items WHERE tuition_id = $1 ORDER BY course_name ASC`
	var items []models.TuitionLineItem
	if err := r.db.SelectContext(ctx, &items, itemsQuery, record.ID); err != nil {
		return nil, fmt.Errorf("list tuition line items: %w", err)
	}

	return &models.TuitionDetail{TuitionRecord: record, Items: items}, nil
}

// Replace upserts the tuition record and swaps its line items in one
// transaction, keeping recomputation idempotent. Paid status and paid_at are
// preserved on recompute.
func (r *TuitionRepository) Replace(ctx context.Context, record *models.TuitionRecord, items []models.TuitionLineItem) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = models.TuitionStatusUnpaid
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tuition replace tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO tuition_records (id, student_id, semester_id, total, status, paid_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (student_id, semester_id) DO UPDATE SET total = EXCLUDED.total, updated_at = EXCLUDED.updated_at
        RETURNING id`
	var recordID string
	if err = tx.GetContext(ctx, &recordID, upsert, record.ID, record.StudentID, record.SemesterID, record.Total, record.Status, record.PaidAt, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("upsert tuition record: %w", err)
	}
	record.ID = recordID

	if _, err = tx.ExecContext(ctx, `DELETE FROM tuition_line_items WHERE tuition_id = $1`, record.ID); err != nil {
		return fmt.Errorf("clear tuition line items: %w", err)
	}

	const insert = `INSERT INTO tuition_line_items (id, tuition_id, section_id, course_name, credits, credit_rate, amount)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].TuitionID = record.ID
		if _, err = tx.ExecContext(ctx, insert, items[i].ID, items[i].TuitionID, items[i].SectionID, items[i].CourseName, items[i].Credits, items[i].CreditRate, items[i].Amount); err != nil {
			return fmt.Errorf("insert tuition line item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tuition replace tx: %w", err)
	}
	return nil
}

// MarkPaid flips the record to paid with the given timestamp.
func (r *TuitionRepository) MarkPaid(ctx context.Context, studentID, semesterID string, paidAt time.Time) error {
	const query = `UPDATE tuition_records SET status = $3, paid_at = $4, updated_at = $5 WHERE student_id = $1 AND semester_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, semesterID, models.TuitionStatusPaid, paidAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark tuition paid: %w", err)
	}
	return nil
}

// FindPolicy resolves the applicable per-credit rate for (program, faculty,
// semester). Nil policy dimensions are wildcards; the most specific match
// wins.
func (r *TuitionRepository) FindPolicy(ctx context.Context, programID, facultyID, semesterID string) (*models.TuitionPolicy, error) {
	const query = `SELECT id, program_id, faculty_id, semester_id, credit_rate, created_at FROM tuition_policies
        WHERE (program_id = $1 OR program_id IS NULL)
          AND (faculty_id = $2 OR faculty_id IS NULL)
          AND (semester_id = $3 OR semester_id IS NULL)
        ORDER BY program_id IS NULL, faculty_id IS NULL, semester_id IS NULL
        LIMIT 1`
	var policy models.TuitionPolicy
	if err := r.db.GetContext(ctx, &policy, query, programID, facultyID, semesterID); err != nil {
		return nil, err
	}
	return &policy, nil
}
