package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and HTTP status
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFound creates a new "not found" error
func NewNotFound(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// NewValidation creates a new validation error (malformed input, policy violations)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewConflict creates a new "conflict" error (e.g., duplicate email).
// Surfaced as 400 to match the public API contract for signup.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewUnauthorized creates a new "unauthorized" error
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewPermissionDenied creates a new "permission denied" error (role mismatch)
func NewPermissionDenied(message string) *AppError {
	return &AppError{
		Code:    ErrCodePermissionDenied,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// NewRateLimited creates a new "rate limited" error. The message carries the
// remaining lockout time as mm:ss so clients can display it.
func NewRateLimited(message string) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// NewInternal creates a new "internal server" error
func NewInternal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(err error, code ErrorCode, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Status:  status,
	}
}
