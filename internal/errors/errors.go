// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can pick a recovery path.
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeError             ErrorType = "processing_error"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeCanceled          ErrorType = "canceled"
	ErrorTypeRenderUnavailable ErrorType = "render_unavailable"
	ErrorTypeConflict          ErrorType = "conflict"
)

// AppError is the typed error carried across service boundaries.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // stable code for API clients
}

// Error implements error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError of the given type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError reports caller misuse such as a blank transcript.
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError reports a missing map, scene or token.
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError reports an interpretation backend failure.
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewTimeoutError reports an interpretation that ran past its deadline.
func NewTimeoutError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTimeout, message, originalError)
}

// NewCanceledError reports an interpretation abandoned by the caller.
func NewCanceledError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeCanceled, message, originalError)
}

// NewRenderUnavailableError reports a drawing surface or device that could not be created.
func NewRenderUnavailableError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeRenderUnavailable, message, originalError)
}

// NewConflictError reports a state transition that is not allowed right now.
func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

// TypeOf returns the ErrorType of err, or "" for foreign errors.
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsNotFoundError reports whether err is a not-found error.
func IsNotFoundError(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsRenderUnavailableError reports whether err is a render surface failure.
func IsRenderUnavailableError(err error) bool {
	return TypeOf(err) == ErrorTypeRenderUnavailable
}

// IsConflictError reports whether err is a conflict.
func IsConflictError(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}

// IsInterpretationFailure reports errors after which the caller should go
// back to the input phase and keep the transcript for resubmission.
func IsInterpretationFailure(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeError, ErrorTypeTimeout, ErrorTypeCanceled:
		return true
	}
	return false
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeCanceled:
		return "CANCELED"
	case ErrorTypeRenderUnavailable:
		return "RENDER_UNAVAILABLE"
	case ErrorTypeConflict:
		return "CONFLICT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError adds context to err while keeping its type.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
