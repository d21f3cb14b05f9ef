package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// CourseRepository handles persistence of courses and their sections.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID loads a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, credits, faculty_id, open, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindSectionByID returns a section with course context.
func (r *CourseRepository) FindSectionByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	const query = `SELECT cs.id, cs.course_id, cs.semester_id, cs.name, cs.lecturer_id, cs.current_count, cs.max_count, cs.created_at, cs.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits
        FROM course_sections cs
        LEFT JOIN courses c ON c.id = cs.course_id
        WHERE cs.id = $1`
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListSections returns sections filtered by course and semester.
func (r *CourseRepository) ListSections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := `FROM course_sections cs
LEFT JOIN courses c ON c.id = cs.course_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":        "cs.name",
		"course_name": "c.name",
		"created_at":  "cs.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "cs.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT cs.id, cs.course_id, cs.semester_id, cs.name, cs.lecturer_id, cs.current_count, cs.max_count, cs.created_at, cs.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}
