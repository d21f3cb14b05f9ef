package models

import "time"

// Course represents a subject (hoc phan) offered by a faculty.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Credits   int       `db:"credits" json:"credits"`
	FacultyID string    `db:"faculty_id" json:"faculty_id"`
	Open      bool      `db:"open" json:"open"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseSection is one scheduled section of a course within a semester.
// CurrentCount must never exceed MaxCount for registered students.
type CourseSection struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	Name         string    `db:"name" json:"name"`
	LecturerID   *string   `db:"lecturer_id" json:"lecturer_id,omitempty"`
	CurrentCount int       `db:"current_count" json:"current_count"`
	MaxCount     int       `db:"max_count" json:"max_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail carries a section together with its course context.
type SectionDetail struct {
	CourseSection
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	Credits    int    `db:"credits" json:"credits"`
}

// SectionFilter defines filters for the section list endpoint.
type SectionFilter struct {
	CourseID   string
	SemesterID string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
