package models

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeSync            = "SYNC_ERROR"
	CodeConflictSkipped = "CONFLICT_SKIPPED"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrConflictSkipped is returned when a mutation for the same key is already in flight.
// The view treats it as a no-op.
var ErrConflictSkipped = &AppError{
	Code:    CodeConflictSkipped,
	Message: "mutation already in flight",
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewSyncError reports a remote call that failed after local state was touched.
// The store has already been rolled back when this is returned.
func NewSyncError(op string, err error) *AppError {
	return &AppError{
		Code:    CodeSync,
		Message: fmt.Sprintf("%s failed", op),
		Err:     err,
	}
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}
