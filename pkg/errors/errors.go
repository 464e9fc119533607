package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data,
	// e.g. a duplicate or overlapping slot
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeAlreadyBooked indicates a lost reservation race on a slot
	ErrorTypeAlreadyBooked ErrorType = "ALREADY_BOOKED"

	// ErrorTypeInvalidState indicates an operation not valid for the
	// current appointment status
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"

	// ErrorTypePolicyViolation indicates a time-window rule was breached
	ErrorTypePolicyViolation ErrorType = "POLICY_VIOLATION"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeTransientIO indicates a transient network or storage failure
	ErrorTypeTransientIO ErrorType = "TRANSIENT_IO"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from an external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError represents an application error. Details carries structured
// context (offending id, boundary value) so callers can explain the
// failure without another round trip.
type AppError struct {
	Type    ErrorType
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a structured detail to the error and returns it
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewAlreadyBookedError creates an error for a slot lost to a concurrent
// reservation. The availability id is always carried in Details.
func NewAlreadyBookedError(availabilityID string) *AppError {
	return &AppError{
		Type:    ErrorTypeAlreadyBooked,
		Message: fmt.Sprintf("availability %s is already booked", availabilityID),
		Details: map[string]any{"availability_id": availabilityID},
	}
}

// NewInvalidStateError creates an error for an operation that is not
// valid for the current status
func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidState,
		Message: message,
	}
}

// NewPolicyViolationError creates an error for a breached time-window rule
func NewPolicyViolationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypePolicyViolation,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewTransientIOError creates an error for a transient network/storage failure
func NewTransientIOError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransientIO,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}
