package models

import "time"

// TuitionStatus tracks payment state of a tuition record.
type TuitionStatus string

const (
	TuitionStatusUnpaid TuitionStatus = "UNPAID"
	TuitionStatusPaid   TuitionStatus = "PAID"
)

// TuitionRecord is the per (student, semester) tuition bill.
// TotalAmount equals the sum of its line item amounts.
type TuitionRecord struct {
	ID         string        `db:"id" json:"id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	SemesterID string        `db:"semester_id" json:"semester_id"`
	Total      float64       `db:"total" json:"total"`
	Status     TuitionStatus `db:"status" json:"status"`
	PaidAt     *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// TuitionLineItem is one billable component tied to a registered section.
type TuitionLineItem struct {
	ID         string  `db:"id" json:"id"`
	TuitionID  string  `db:"tuition_id" json:"tuition_id"`
	SectionID  string  `db:"section_id" json:"section_id"`
	CourseName string  `db:"course_name" json:"course_name"`
	Credits    int     `db:"credits" json:"credits"`
	CreditRate float64 `db:"credit_rate" json:"credit_rate"`
	Amount     float64 `db:"amount" json:"amount"`
}

// TuitionDetail bundles a record with its line items.
type TuitionDetail struct {
	TuitionRecord
	Items []TuitionLineItem `json:"items"`
}

// TuitionPolicy resolves a per-credit rate. Nil dimensions act as wildcards;
// the most specific matching policy wins.
type TuitionPolicy struct {
	ID         string    `db:"id" json:"id"`
	ProgramID  *string   `db:"program_id" json:"program_id,omitempty"`
	FacultyID  *string   `db:"faculty_id" json:"faculty_id,omitempty"`
	SemesterID *string   `db:"semester_id" json:"semester_id,omitempty"`
	CreditRate float64   `db:"credit_rate" json:"credit_rate"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
