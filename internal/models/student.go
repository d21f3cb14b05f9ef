package models

import "time"

// Faculty represents an academic faculty (khoa).
type Faculty struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Program represents a degree program a student is admitted into.
type Program struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Student represents a learner registered in the institution.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	FullName  string    `db:"full_name" json:"full_name"`
	FacultyID string    `db:"faculty_id" json:"faculty_id"`
	ProgramID string    `db:"program_id" json:"program_id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with faculty and program context.
type StudentDetail struct {
	Student
	FacultyName *string `db:"faculty_name" json:"faculty_name,omitempty"`
	ProgramName *string `db:"program_name" json:"program_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	FacultyID string
	ProgramID string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
