package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/constants"
	"gorm.io/gorm"
)

// Error codes
const (
	// Authentication and authorization
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeImmutableField  = "IMMUTABLE_FIELD"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Task lifecycle errors
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
	ErrCodeAlreadyAssigned    = "ALREADY_ASSIGNED"
	ErrCodeAlreadyCompleted   = "ALREADY_COMPLETED"
	ErrCodeNotAssigned        = "NOT_ASSIGNED"
	ErrCodeNoFiles            = "NO_FILES"
	ErrCodeInvalidAssignee    = "INVALID_ASSIGNEE"

	// Validation errors
	ErrCodeValidation = "VALIDATION_ERROR"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[string]int{
	ErrCodeUnauthenticated:    http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeImmutableField:     http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeInvalidTransition:  http.StatusUnprocessableEntity,
	ErrCodePreconditionFailed: http.StatusUnprocessableEntity,
	ErrCodeAlreadyAssigned:    http.StatusConflict,
	ErrCodeAlreadyCompleted:   http.StatusConflict,
	ErrCodeNotAssigned:        http.StatusUnprocessableEntity,
	ErrCodeNoFiles:            http.StatusBadRequest,
	ErrCodeInvalidAssignee:    http.StatusBadRequest,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeInternalError:      http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status associated with an error code.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Is matches errors by code so wrapped copies compare equal to the sentinels.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// Status returns the HTTP status for the error's code.
func (e *APIError) Status() int {
	return StatusFor(e.Code)
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// Validation builds a VALIDATION_ERROR with the given message.
func Validation(message string) *APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// Code extracts the error code from err, or INTERNAL_ERROR when err is not an APIError.
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrCodeInternalError
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Respond maps any error returned by the service layer to a JSON response.
// Storage failures are logged; their text is only exposed to super admins.
func Respond(c *gin.Context, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		RespondWithError(c, apiErr.Status(), apiErr)
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		Conflict(c, "")
	default:
		slog.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("err", err),
		)
		resp := NewAPIError(ErrCodeInternalError, "Internal server error")
		if role, ok := c.Get(constants.ContextKeyRole); ok && role == "SuperAdmin" {
			resp.Details = err.Error()
		}
		RespondWithError(c, http.StatusInternalServerError, resp)
	}
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthenticated, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeValidation, message))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, message))
}
