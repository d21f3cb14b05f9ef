package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// RegistrationRepository handles persistence of section registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.SectionRegistration, error) {
	const query = `SELECT id, student_id, section_id, semester_id, status, registered_at, cancelled_at FROM section_registrations WHERE id = $1`
	var registration models.SectionRegistration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// ExistsActive checks if the student already holds an active registration for
// the section. A partial unique index on (student_id, section_id) WHERE
// status = 'REGISTERED' closes the check-then-act window at the storage layer.
func (r *RegistrationRepository) ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM section_registrations WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID, models.RegistrationStatusRegistered); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active registration: %w", err)
	}
	return true, nil
}

// Register claims a seat and inserts the registration in one transaction.
// The seat claim is a single bounded increment so two concurrent
// registrations can never overbook: zero affected rows means the section is
// full and the whole transaction rolls back with sql.ErrNoRows.
func (r *RegistrationRepository) Register(ctx context.Context, registration *models.SectionRegistration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.RegisteredAt.IsZero() {
		registration.RegisteredAt = time.Now().UTC()
	}
	if registration.Status == "" {
		registration.Status = models.RegistrationStatusRegistered
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `UPDATE course_sections SET current_count = current_count + 1, updated_at = $2 WHERE id = $1 AND current_count < max_count`, registration.SectionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("claim section seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim seat rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	const insert = `INSERT INTO section_registrations (id, student_id, section_id, semester_id, status, registered_at, cancelled_at)
        VALUES (:id, :student_id, :section_id, :semester_id, :status, :registered_at, :cancelled_at)`
	if _, err = tx.NamedExecContext(ctx, insert, registration); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit register tx: %w", err)
	}
	return nil
}

// Cancel marks a registration cancelled and releases its seat in one
// transaction. The release never drives the counter below zero.
func (r *RegistrationRepository) Cancel(ctx context.Context, id, sectionID string, cancelledAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE section_registrations SET status = $2, cancelled_at = $3 WHERE id = $1`, id, models.RegistrationStatusCancelled, cancelledAt); err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE course_sections SET current_count = GREATEST(current_count - 1, 0), updated_at = $2 WHERE id = $1`, sectionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("release section seat: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}
	return nil
}

// ListRosterBySection returns the active roster for a section, used by
// roster exports.
func (r *RegistrationRepository) ListRosterBySection(ctx context.Context, sectionID string) ([]models.SectionRosterRow, error) {
	const query = `SELECT s.code AS student_code, s.full_name AS student_name, sr.registered_at
        FROM section_registrations sr
        JOIN students s ON s.id = sr.student_id
        WHERE sr.section_id = $1 AND sr.status = $2
        ORDER BY s.full_name ASC`
	var rows []models.SectionRosterRow
	if err := r.db.SelectContext(ctx, &rows, query, sectionID, models.RegistrationStatusRegistered); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return rows, nil
}

// ListActiveByStudentAndSemester returns active registrations with section
// and course context, the input to tuition computation.
func (r *RegistrationRepository) ListActiveByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.RegistrationDetail, error) {
	const query = `SELECT sr.id, sr.student_id, sr.section_id, sr.semester_id, sr.status, sr.registered_at, sr.cancelled_at,
        cs.name AS section_name, c.code AS course_code, c.name AS course_name, c.credits
        FROM section_registrations sr
        LEFT JOIN course_sections cs ON cs.id = sr.section_id
        LEFT JOIN courses c ON c.id = cs.course_id
        WHERE sr.student_id = $1 AND sr.semester_id = $2 AND sr.status = $3
        ORDER BY sr.registered_at ASC`
	var registrations []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, studentID, semesterID, models.RegistrationStatusRegistered); err != nil {
		return nil, fmt.Errorf("list active registrations: %w", err)
	}
	return registrations, nil
}
