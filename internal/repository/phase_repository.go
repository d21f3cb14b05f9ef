package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// PhaseRepository handles persistence of registration phase rows.
type PhaseRepository struct {
	db *sqlx.DB
}

// NewPhaseRepository constructs the repository.
func NewPhaseRepository(db *sqlx.DB) *PhaseRepository {
	return &PhaseRepository{db: db}
}

// ListBySemester returns all phase rows seeded for a semester.
func (r *PhaseRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.RegistrationPhase, error) {
	const query = `SELECT id, semester_id, tag, enabled, start_at, end_at, created_at, updated_at FROM registration_phases WHERE semester_id = $1 ORDER BY created_at ASC`
	var phases []models.RegistrationPhase
	if err := r.db.SelectContext(ctx, &phases, query, semesterID); err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	return phases, nil
}

// ListEnabled returns enabled phase rows whose window covers now, most
// recently created first. More than one row signals an invariant violation
// the caller must tie-break.
func (r *PhaseRepository) ListEnabled(ctx context.Context, semesterID string, now time.Time) ([]models.RegistrationPhase, error) {
	const query = `SELECT id, semester_id, tag, enabled, start_at, end_at, created_at, updated_at FROM registration_phases WHERE semester_id = $1 AND enabled = TRUE AND start_at <= $2 AND end_at >= $2 ORDER BY created_at DESC`
	var phases []models.RegistrationPhase
	if err := r.db.SelectContext(ctx, &phases, query, semesterID, now); err != nil {
		return nil, fmt.Errorf("list enabled phases: %w", err)
	}
	return phases, nil
}

// SetActive disables every phase row for the semester, pushing their windows
// into the past, then enables the seeded row for tag with the given window.
// The whole operation runs in one transaction holding row locks on the
// semester's phase set so concurrent transitions serialize.
// Returns sql.ErrNoRows when no row for tag is seeded.
func (r *PhaseRepository) SetActive(ctx context.Context, semesterID string, tag models.PhaseTag, startAt, endAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin phase transition tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the full phase set first so two admins cannot interleave.
	if _, err = tx.ExecContext(ctx, `SELECT id FROM registration_phases WHERE semester_id = $1 FOR UPDATE`, semesterID); err != nil {
		return fmt.Errorf("lock phase rows: %w", err)
	}

	now := time.Now().UTC()
	expired := now.Add(-time.Hour)
	if _, err = tx.ExecContext(ctx, `UPDATE registration_phases SET enabled = FALSE, start_at = $2, end_at = $2, updated_at = $3 WHERE semester_id = $1`, semesterID, expired, now); err != nil {
		return fmt.Errorf("disable phases: %w", err)
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `UPDATE registration_phases SET enabled = TRUE, start_at = $3, end_at = $4, updated_at = $5 WHERE semester_id = $1 AND tag = $2`, semesterID, tag, startAt, endAt, now)
	if err != nil {
		return fmt.Errorf("enable phase %s: %w", tag, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("phase transition rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit phase transition tx: %w", err)
	}
	return nil
}

// Seed inserts the five phase rows for a semester, all disabled. Existing
// rows are left untouched.
func (r *PhaseRepository) Seed(ctx context.Context, semesterID string, ids []string) error {
	tags := []models.PhaseTag{
		models.PhasePreApproval,
		models.PhaseEnrollmentDeclaration,
		models.PhaseScheduleArrangement,
		models.PhaseCourseRegistration,
		models.PhaseNormalOperation,
	}
	if len(ids) != len(tags) {
		return fmt.Errorf("seed requires %d ids, got %d", len(tags), len(ids))
	}

	now := time.Now().UTC()
	expired := now.Add(-time.Hour)
	const query = `INSERT INTO registration_phases (id, semester_id, tag, enabled, start_at, end_at, created_at, updated_at)
        VALUES ($1, $2, $3, FALSE, $4, $4, $5, $5)
        ON CONFLICT (semester_id, tag) DO NOTHING`
	for i, tag := range tags {
		if _, err := r.db.ExecContext(ctx, query, ids[i], semesterID, tag, expired, now); err != nil {
			return fmt.Errorf("seed phase %s: %w", tag, err)
		}
	}
	return nil
}
