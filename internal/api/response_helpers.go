// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/services"
	"github.com/Corphon/DreamScape/internal/utils"
	"github.com/gin-gonic/gin"
)

// APIResponse is the JSON envelope of every API response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError is the error part of the envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper writes envelopes.
type ResponseHelper struct {
	logger *utils.Logger
}

// NewResponseHelper creates a response helper.
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{logger: utils.GetLogger().WithComponent("api")}
}

func (rh *ResponseHelper) envelope(c *gin.Context, status int, data interface{}, message []string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// Success writes a 200 envelope.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.envelope(c, http.StatusOK, data, message)
}

// Created writes a 201 envelope.
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	rh.envelope(c, http.StatusCreated, data, message)
}

// Accepted writes a 202 envelope for background tasks.
func (rh *ResponseHelper) Accepted(c *gin.Context, data interface{}, message ...string) {
	rh.envelope(c, http.StatusAccepted, data, message)
}

// sanitizeErrorMessage hides messages that leak file paths.
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"open ", "no such file", "permission denied"} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// Error writes an error envelope.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizeErrorMessage(message),
	}
	if len(details) > 0 {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest writes a 400.
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// NotFound writes a 404 for the named resource.
func (rh *ResponseHelper) NotFound(c *gin.Context, resource string, details ...string) {
	rh.Error(c, http.StatusNotFound, rh.getResourceNotFoundCode(resource), resource+" not found", details...)
}

// InternalError writes a 500.
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// AppError maps err through the error taxonomy and writes the envelope.
func (rh *ResponseHelper) AppError(c *gin.Context, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		rh.logger.Error("request failed", map[string]interface{}{
			"path":       c.FullPath(),
			"request_id": rh.getRequestID(c),
			"error":      err.Error(),
		})
	}
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Err != nil && status < http.StatusInternalServerError {
			rh.Error(c, status, code, message, appErr.Err.Error())
			return
		}
	}
	rh.Error(c, status, code, message)
}

// DownloadResponse forces a file download.
func (rh *ResponseHelper) DownloadResponse(c *gin.Context, content []byte, filename, contentType string) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Length", strconv.Itoa(len(content)))
	c.Data(http.StatusOK, contentType, content)
}

// ExportResponse sends an export as a download in its own content type.
func (rh *ResponseHelper) ExportResponse(c *gin.Context, result *models.ExportResult) {
	contentType := "application/json; charset=utf-8"
	if result.Format == services.FormatMarkdown {
		contentType = "text/markdown; charset=utf-8"
	}
	rh.DownloadResponse(c, []byte(result.Content), result.FileName, contentType)
}

// PNGResponse writes an encoded frame.
func (rh *ResponseHelper) PNGResponse(c *gin.Context, png []byte) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func (rh *ResponseHelper) getResourceNotFoundCode(resource string) string {
	switch resource {
	case "dream":
		return ErrorDreamNotFound
	case "scene":
		return ErrorSceneNotFound
	case "share":
		return ErrorShareNotFound
	case "task":
		return ErrorTaskNotFound
	default:
		return ErrorNotFound
	}
}
