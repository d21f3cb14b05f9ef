package models

import "time"

// AcademicYear groups semesters under an intake cohort.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Semester models one academic term. Exactly one semester carries
// is_current=true across all rows.
type Semester struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Sequence       int       `db:"sequence" json:"sequence"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	IsCurrent      bool      `db:"is_current" json:"is_current"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SemesterFilter defines filters supported by the semester list endpoint.
type SemesterFilter struct {
	AcademicYearID string
	IsCurrent      *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
