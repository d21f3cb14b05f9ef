package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// DeclarationRepository handles persistence of enrollment declarations.
type DeclarationRepository struct {
	db *sqlx.DB
}

// NewDeclarationRepository constructs the repository.
func NewDeclarationRepository(db *sqlx.DB) *DeclarationRepository {
	return &DeclarationRepository{db: db}
}

// ExistsByStudentAndCourse checks whether a declaration already exists.
// A unique index on (student_id, course_id) backs this check at the storage
// layer; the Create insert surfaces the conflict when two requests race.
func (r *DeclarationRepository) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollment_declarations WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check declaration: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment declaration.
func (r *DeclarationRepository) Create(ctx context.Context, declaration *models.EnrollmentDeclaration) error {
	if declaration.ID == "" {
		declaration.ID = uuid.NewString()
	}
	if declaration.CreatedAt.IsZero() {
		declaration.CreatedAt = time.Now().UTC()
	}
	if declaration.Status == "" {
		declaration.Status = models.DeclarationStatusDeclared
	}
	const query = `INSERT INTO enrollment_declarations (id, student_id, course_id, semester_id, status, created_at)
        VALUES (:id, :student_id, :course_id, :semester_id, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, declaration); err != nil {
		return fmt.Errorf("create declaration: %w", err)
	}
	return nil
}

// DeleteByIDs removes the given declarations belonging to the student and
// returns how many rows were removed. Absent ids are skipped silently.
func (r *DeclarationRepository) DeleteByIDs(ctx context.Context, studentID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, studentID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf("DELETE FROM enrollment_declarations WHERE student_id = $1 AND id IN (%s)", strings.Join(placeholders, ","))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete declarations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete declarations rows affected: %w", err)
	}
	return int(affected), nil
}

// ListByStudent returns a student's declarations for a semester with course context.
func (r *DeclarationRepository) ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.DeclarationDetail, error) {
	const query = `SELECT d.id, d.student_id, d.course_id, d.semester_id, d.status, d.created_at,
        c.code AS course_code, c.name AS course_name, c.credits
        FROM enrollment_declarations d
        LEFT JOIN courses c ON c.id = d.course_id
        WHERE d.student_id = $1 AND d.semester_id = $2
        ORDER BY d.created_at ASC`
	var declarations []models.DeclarationDetail
	if err := r.db.SelectContext(ctx, &declarations, query, studentID, semesterID); err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}
	return declarations, nil
}
