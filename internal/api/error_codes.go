// internal/api/error_codes.go
package api

import (
	"net/http"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
)

// API error codes
const (
	// general
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// interpretation
	ErrorValidation       = "VALIDATION_ERROR"
	ErrorProcessing       = "PROCESSING_ERROR"
	ErrorTimeout          = "TIMEOUT"
	ErrorCanceled         = "CANCELED"
	ErrorTaskNotFound     = "TASK_NOT_FOUND"
	ErrorDreamNotFound    = "DREAM_NOT_FOUND"
	ErrorSceneNotFound    = "SCENE_NOT_FOUND"
	ErrorShareNotFound    = "SHARE_NOT_FOUND"
	ErrorInvalidRenderArg = "INVALID_RENDER_ARGUMENT"

	// rendering
	ErrorRenderUnavailable = "RENDER_UNAVAILABLE"
)

// statusForError maps an AppError type to an HTTP status and error code.
// Foreign errors are internal errors.
func statusForError(err error) (int, string) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, ErrorValidation
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, ErrorNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict, ErrorConflict
	case apperrors.ErrorTypeRenderUnavailable:
		return http.StatusServiceUnavailable, ErrorRenderUnavailable
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout, ErrorTimeout
	case apperrors.ErrorTypeCanceled:
		// client closed request
		return 499, ErrorCanceled
	case apperrors.ErrorTypeError:
		return http.StatusInternalServerError, ErrorProcessing
	default:
		return http.StatusInternalServerError, ErrorInternalError
	}
}
