package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// WindowRepository handles persistence of registration windows.
type WindowRepository struct {
	db *sqlx.DB
}

// NewWindowRepository constructs the repository.
func NewWindowRepository(db *sqlx.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

// ListBySemester returns all windows configured for a semester.
func (r *WindowRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.RegistrationWindow, error) {
	const query = `SELECT id, semester_id, scope, faculty_id, phase_tag, start_at, end_at, created_at FROM registration_windows WHERE semester_id = $1 ORDER BY start_at ASC`
	var windows []models.RegistrationWindow
	if err := r.db.SelectContext(ctx, &windows, query, semesterID); err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return windows, nil
}

// FindOpenInstitution returns an institution-wide window open at now for the
// semester and phase tag, or sql.ErrNoRows.
func (r *WindowRepository) FindOpenInstitution(ctx context.Context, semesterID string, tag models.PhaseTag, now time.Time) (*models.RegistrationWindow, error) {
	const query = `SELECT id, semester_id, scope, faculty_id, phase_tag, start_at, end_at, created_at FROM registration_windows
        WHERE semester_id = $1 AND phase_tag = $2 AND scope = $3 AND start_at <= $4 AND end_at >= $4
        ORDER BY start_at DESC LIMIT 1`
	var window models.RegistrationWindow
	if err := r.db.GetContext(ctx, &window, query, semesterID, tag, models.ScopeInstitution, now); err != nil {
		return nil, err
	}
	return &window, nil
}

// FindOpenFaculty returns a faculty-scoped window open at now, or sql.ErrNoRows.
func (r *WindowRepository) FindOpenFaculty(ctx context.Context, semesterID string, tag models.PhaseTag, facultyID string, now time.Time) (*models.RegistrationWindow, error) {
	const query = `SELECT id, semester_id, scope, faculty_id, phase_tag, start_at, end_at, created_at FROM registration_windows
        WHERE semester_id = $1 AND phase_tag = $2 AND scope = $3 AND faculty_id = $4 AND start_at <= $5 AND end_at >= $5
        ORDER BY start_at DESC LIMIT 1`
	var window models.RegistrationWindow
	if err := r.db.GetContext(ctx, &window, query, semesterID, tag, models.ScopeFaculty, facultyID, now); err != nil {
		return nil, err
	}
	return &window, nil
}

// Create persists a new registration window.
func (r *WindowRepository) Create(ctx context.Context, window *models.RegistrationWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO registration_windows (id, semester_id, scope, faculty_id, phase_tag, start_at, end_at, created_at)
        VALUES (:id, :semester_id, :scope, :faculty_id, :phase_tag, :start_at, :end_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	return nil
}

// Delete removes a registration window.
func (r *WindowRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM registration_windows WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	return nil
}
