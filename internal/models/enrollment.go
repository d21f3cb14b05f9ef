package models

import "time"

// DeclarationStatus tracks the lifecycle of an enrollment declaration.
type DeclarationStatus string

const (
	DeclarationStatusDeclared DeclarationStatus = "DECLARED"
	DeclarationStatusApproved DeclarationStatus = "APPROVED"
	DeclarationStatusRejected DeclarationStatus = "REJECTED"
)

// EnrollmentDeclaration is a student's statement of interest in a course
// ahead of formal section registration. One declaration per (student, course).
type EnrollmentDeclaration struct {
	ID         string            `db:"id" json:"id"`
	StudentID  string            `db:"student_id" json:"student_id"`
	CourseID   string            `db:"course_id" json:"course_id"`
	SemesterID string            `db:"semester_id" json:"semester_id"`
	Status     DeclarationStatus `db:"status" json:"status"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// DeclarationDetail adds course context to a declaration.
type DeclarationDetail struct {
	EnrollmentDeclaration
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	Credits    int    `db:"credits" json:"credits"`
}

// RegistrationStatus tracks a section registration lifecycle.
type RegistrationStatus string

const (
	RegistrationStatusRegistered  RegistrationStatus = "REGISTERED"
	RegistrationStatusCancelled   RegistrationStatus = "CANCELLED"
	RegistrationStatusTransferred RegistrationStatus = "TRANSFERRED"
)

// SectionRegistration is a binding registration into a course section.
type SectionRegistration struct {
	ID           string             `db:"id" json:"id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	SectionID    string             `db:"section_id" json:"section_id"`
	SemesterID   string             `db:"semester_id" json:"semester_id"`
	Status       RegistrationStatus `db:"status" json:"status"`
	RegisteredAt time.Time          `db:"registered_at" json:"registered_at"`
	CancelledAt  *time.Time         `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// RegistrationDetail carries a registration with section and course context.
type RegistrationDetail struct {
	SectionRegistration
	SectionName string `db:"section_name" json:"section_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
	Credits     int    `db:"credits" json:"credits"`
}

// SectionRosterRow is one student line in a section roster export.
type SectionRosterRow struct {
	StudentCode  string    `db:"student_code" json:"student_code"`
	StudentName  string    `db:"student_name" json:"student_name"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// RegistrationHistory is the per (student, semester) action trail header.
type RegistrationHistory struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// History actions recorded against the registration trail.
const (
	HistoryActionDeclare       = "DECLARE"
	HistoryActionCancelDeclare = "CANCEL_DECLARE"
	HistoryActionRegister      = "REGISTER"
	HistoryActionDrop          = "DROP"
)

// RegistrationHistoryEntry is one append-only action record.
type RegistrationHistoryEntry struct {
	ID        string    `db:"id" json:"id"`
	HistoryID string    `db:"history_id" json:"history_id"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
