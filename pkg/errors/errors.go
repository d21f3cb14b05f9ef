package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrMissingParams      = New("MISSING_PARAMS", http.StatusBadRequest, "missing required parameters")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Registration domain errors.
var (
	ErrInvalidPhase        = New("INVALID_PHASE", http.StatusBadRequest, "unrecognised registration phase")
	ErrPhaseNotSeeded      = New("PHASE_NOT_SEEDED", http.StatusNotFound, "phase row not seeded for semester")
	ErrNoActivePhase       = New("NO_ACTIVE_PHASE", http.StatusConflict, "no registration phase is active")
	ErrWrongPhase          = New("WRONG_PHASE", http.StatusConflict, "action not permitted in current phase")
	ErrNoOpenWindow        = New("NO_OPEN_WINDOW", http.StatusConflict, "no open registration window")
	ErrNoCurrentSemester   = New("NO_CURRENT_SEMESTER", http.StatusConflict, "no current semester configured")
	ErrStudentNotFound     = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found")
	ErrCourseNotFound      = New("HOC_PHAN_NOT_FOUND", http.StatusNotFound, "course not found")
	ErrCourseClosed        = New("HOC_PHAN_CLOSED", http.StatusConflict, "course closed for enrollment")
	ErrSectionNotFound     = New("SECTION_NOT_FOUND", http.StatusNotFound, "course section not found")
	ErrSectionFull         = New("SECTION_FULL", http.StatusConflict, "course section is full")
	ErrAlreadyRegistered   = New("ALREADY_REGISTERED", http.StatusConflict, "already registered")
	ErrTuitionNotFound     = New("HOC_PHI_NOT_FOUND", http.StatusNotFound, "tuition record not found")
	ErrTuitionAlreadyPaid  = New("HOC_PHI_ALREADY_PAID", http.StatusConflict, "tuition already paid")
	ErrTransactionNotFound = New("TRANSACTION_NOT_FOUND", http.StatusNotFound, "payment transaction not found")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
