package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// DocumentRepository handles persistence of course document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create persists document metadata.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.CourseDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_documents (id, course_id, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at)
        VALUES (:id, :course_id, :file_name, :storage_path, :mime_type, :size_bytes, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID loads document metadata by identifier.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.CourseDocument, error) {
	const query = `SELECT id, course_id, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at FROM course_documents WHERE id = $1`
	var doc models.CourseDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByCourse returns documents attached to a course.
func (r *DocumentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseDocument, error) {
	const query = `SELECT id, course_id, file_name, storage_path, mime_type, size_bytes, uploaded_by, created_at FROM course_documents WHERE course_id = $1 ORDER BY created_at DESC`
	var docs []models.CourseDocument
	if err := r.db.SelectContext(ctx, &docs, query, courseID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
