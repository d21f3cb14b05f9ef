package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// HistoryRepository maintains the per (student, semester) registration trail.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append upserts the trail header for (student, semester) and records one
// action entry. Entries are append-only.
func (r *HistoryRepository) Append(ctx context.Context, studentID, semesterID, action, detail string) error {
	now := time.Now().UTC()

	const upsert = `INSERT INTO registration_histories (id, student_id, semester_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (student_id, semester_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
        RETURNING id`
	var historyID string
	if err := r.db.GetContext(ctx, &historyID, upsert, uuid.NewString(), studentID, semesterID, now); err != nil {
		return fmt.Errorf("upsert registration history: %w", err)
	}

	const insert = `INSERT INTO registration_history_entries (id, history_id, action, detail, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), historyID, action, detail, now); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// ListEntries returns the trail for (student, semester), oldest first.
func (r *HistoryRepository) ListEntries(ctx context.Context, studentID, semesterID string) ([]models.RegistrationHistoryEntry, error) {
	const query = `SELECT e.id, e.history_id, e.action, e.detail, e.created_at
        FROM registration_history_entries e
        JOIN registration_histories h ON h.id = e.history_id
        WHERE h.student_id = $1 AND h.semester_id = $2
        ORDER BY e.created_at ASC`
	var entries []models.RegistrationHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID, semesterID); err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	return entries, nil
}
