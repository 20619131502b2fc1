// Package errors provides unified error handling for the kernel and plugins.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies one of the six error kinds the kernel produces.
type ErrorCode string

const (
	// Validation errors: malformed manifest, unknown field type, invalid
	// permission filter. Surfaced at load; collected, not fail-fast.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// Dependency errors: missing dep, cycle, version conflict. Fatal to
	// bootstrap.
	ErrCodeDependency ErrorCode = "DEPENDENCY"

	// Lifecycle errors: a plugin's init or start threw. Fatal to bootstrap;
	// triggers rollback destroy.
	ErrCodeLifecycle ErrorCode = "LIFECYCLE"

	// Permission-denied errors, HTTP 403.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Not-found errors: service lookup, job lookup, permission-set lookup.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Operational errors: queue max-retries exhausted, health-check
	// failure, template rendering error.
	ErrCodeOperational ErrorCode = "OPERATIONAL"
)

// FieldError is one entry in a collected validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ServiceError is a structured error carrying a stable code, an HTTP status,
// and an optional wrapped cause.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Fields     []FieldError           `json:"fields,omitempty"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches an arbitrary key/value to the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithField appends a field-level validation failure. Validation errors
// collect every offending field rather than stopping at the first one.
func (e *ServiceError) WithField(field, reason string) *ServiceError {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
	return e
}

// New creates a ServiceError with no wrapped cause.
func New(code ErrorCode, message string, httpStatus int) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates a ServiceError around an existing error.
func Wrap(code ErrorCode, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// Validation errors

// Validation returns a validation ServiceError with no field failures yet;
// call WithField to accumulate them.
func Validation(message string) *ServiceError {
	return New(ErrCodeValidation, message, http.StatusBadRequest)
}

func InvalidManifest(plugin string, fields []FieldError) *ServiceError {
	e := New(ErrCodeValidation, "manifest validation failed", http.StatusBadRequest).
		WithDetails("plugin", plugin)
	e.Fields = fields
	return e
}

// Dependency errors

func MissingDependency(plugin, dependency string) *ServiceError {
	return New(ErrCodeDependency, "missing dependency", http.StatusInternalServerError).
		WithDetails("plugin", plugin).
		WithDetails("dependency", dependency)
}

func DependencyCycle(members []string) *ServiceError {
	e := New(ErrCodeDependency, "dependency cycle detected", http.StatusInternalServerError)
	e.Details = map[string]interface{}{"members": members}
	return e
}

func VersionConflict(plugin, dependency, required, actual string) *ServiceError {
	return New(ErrCodeDependency, "dependency version conflict", http.StatusInternalServerError).
		WithDetails("plugin", plugin).
		WithDetails("dependency", dependency).
		WithDetails("required", required).
		WithDetails("actual", actual)
}

// Lifecycle errors

func LifecycleFailed(plugin, phase string, err error) *ServiceError {
	return Wrap(ErrCodeLifecycle, fmt.Sprintf("plugin %s phase failed", phase), http.StatusInternalServerError, err).
		WithDetails("plugin", plugin).
		WithDetails("phase", phase)
}

// Permission errors

func PermissionDenied(reason string) *ServiceError {
	return New(ErrCodePermissionDenied, reason, http.StatusForbidden)
}

// Not-found errors

func NotFound(resource, id string) *ServiceError {
	return New(ErrCodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// Operational errors

func RetriesExhausted(jobID string, attempts int) *ServiceError {
	return New(ErrCodeOperational, "max retries exhausted", http.StatusInternalServerError).
		WithDetails("jobId", jobID).
		WithDetails("attempts", attempts)
}

func HealthCheckFailed(plugin string, err error) *ServiceError {
	return Wrap(ErrCodeOperational, "health check failed", http.StatusServiceUnavailable, err).
		WithDetails("plugin", plugin)
}

func TemplateError(template string, err error) *ServiceError {
	return Wrap(ErrCodeOperational, "template rendering failed", http.StatusInternalServerError, err).
		WithDetails("template", template)
}

// Helper functions

// IsServiceError reports whether err (or something it wraps) is a ServiceError.
func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// GetHTTPStatus returns the HTTP status associated with err, defaulting to 500.
func GetHTTPStatus(err error) int {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
