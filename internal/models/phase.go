package models

import "time"

// PhaseTag identifies one of the five mutually exclusive semester phases.
type PhaseTag string

const (
	PhasePreApproval           PhaseTag = "PRE_APPROVAL"
	PhaseEnrollmentDeclaration PhaseTag = "ENROLLMENT_DECLARATION"
	PhaseScheduleArrangement   PhaseTag = "SCHEDULE_ARRANGEMENT"
	PhaseCourseRegistration    PhaseTag = "COURSE_REGISTRATION"
	PhaseNormalOperation       PhaseTag = "NORMAL_OPERATION"
)

// Valid reports whether the tag is one of the recognised phases.
func (t PhaseTag) Valid() bool {
	switch t {
	case PhasePreApproval, PhaseEnrollmentDeclaration, PhaseScheduleArrangement,
		PhaseCourseRegistration, PhaseNormalOperation:
		return true
	}
	return false
}

// RegistrationPhase is a per-semester phase record. At most one row per
// semester may have enabled=true at any instant.
type RegistrationPhase struct {
	ID         string    `db:"id" json:"id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Tag        PhaseTag  `db:"tag" json:"phase"`
	Enabled    bool      `db:"enabled" json:"is_enabled"`
	StartAt    time.Time `db:"start_at" json:"start_at"`
	EndAt      time.Time `db:"end_at" json:"end_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PhaseWindow is the activation window produced by a phase transition.
type PhaseWindow struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// WindowScope distinguishes institution-wide windows from faculty-scoped ones.
type WindowScope string

const (
	ScopeInstitution WindowScope = "INSTITUTION"
	ScopeFaculty     WindowScope = "FACULTY"
)

// RegistrationWindow is a time-bounded permission layered on top of an active
// phase. An institution-wide window supersedes faculty-scoped windows.
type RegistrationWindow struct {
	ID         string      `db:"id" json:"id"`
	SemesterID string      `db:"semester_id" json:"semester_id"`
	Scope      WindowScope `db:"scope" json:"scope"`
	FacultyID  *string     `db:"faculty_id" json:"faculty_id,omitempty"`
	PhaseTag   PhaseTag    `db:"phase_tag" json:"phase_tag"`
	StartAt    time.Time   `db:"start_at" json:"start_at"`
	EndAt      time.Time   `db:"end_at" json:"end_at"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
