// Package domain defines core types, interfaces, and errors for the POI platform.
package domain

import "fmt"

// UnauthenticatedError indicates the caller presented no identity.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// PermissionDeniedError indicates an authenticated caller with insufficient
// role or scope.
type PermissionDeniedError struct {
	Message string
}

func (e *PermissionDeniedError) Error() string { return e.Message }

// InvalidArgumentError indicates malformed or out-of-range input, detected
// before any side effect.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }

// AlreadyExistsError indicates a duplicate account or document.
type AlreadyExistsError struct {
	Message string
}

func (e *AlreadyExistsError) Error() string { return e.Message }

// FailedPreconditionError indicates the target is not in the state the
// operation requires (e.g. wrong account class).
type FailedPreconditionError struct {
	Message string
}

func (e *FailedPreconditionError) Error() string { return e.Message }

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// InternalError wraps an unexpected provider or store failure. The wrapped
// cause is for logs only and must never be surfaced to callers.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string { return e.Message }

func (e *InternalError) Unwrap() error { return e.Cause }

// ErrUnauthenticated creates an UnauthenticatedError with a formatted message.
func ErrUnauthenticated(format string, args ...interface{}) *UnauthenticatedError {
	return &UnauthenticatedError{Message: fmt.Sprintf(format, args...)}
}

// ErrPermissionDenied creates a PermissionDeniedError with a formatted message.
func ErrPermissionDenied(format string, args ...interface{}) *PermissionDeniedError {
	return &PermissionDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidArgument creates an InvalidArgumentError with a formatted message.
func ErrInvalidArgument(format string, args ...interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// ErrAlreadyExists creates an AlreadyExistsError with a formatted message.
func ErrAlreadyExists(format string, args ...interface{}) *AlreadyExistsError {
	return &AlreadyExistsError{Message: fmt.Sprintf(format, args...)}
}

// ErrFailedPrecondition creates a FailedPreconditionError with a formatted message.
func ErrFailedPrecondition(format string, args ...interface{}) *FailedPreconditionError {
	return &FailedPreconditionError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrInternal creates an InternalError whose cause is hidden from callers.
func ErrInternal(cause error, format string, args ...interface{}) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...), Cause: cause}
}
