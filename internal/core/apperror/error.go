// Package apperror provides the structured errors of the report pipeline.
// All report pipeline errors must use AppError so callers get a kind plus a human message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeExport   = "EXPORT_ERROR"

	// Client errors (400)
	CodeValidation        = "VALIDATION_ERROR"
	CodeConfiguration     = "CONFIGURATION_ERROR"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// Report consistency (422)
	CodeAggregationInconsistency = "AGGREGATION_INCONSISTENCY"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field, value, offending key sets)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}


// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConfiguration creates an error for a report type that does not resolve (400).
func NewConfiguration(reportType string) *AppError {
	return &AppError{
		Code:       CodeConfiguration,
		Message:    fmt.Sprintf("unknown report type %q", reportType),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"report_type": reportType},
	}
}

// NewUnsupportedFormat creates an error for an export format outside the supported set (400).
func NewUnsupportedFormat(format string, supported []string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedFormat,
		Message:    "invalid format request to export report",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"format": format, "supported": supported},
	}
}

// NewAggregationInconsistency reports totals entries whose metric keys differ from the first entry.
func NewAggregationInconsistency(expected, got []string) *AppError {
	return &AppError{
		Code:       CodeAggregationInconsistency,
		Message:    "totals entries do not share the same metric keys",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"expected": expected, "got": got},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewExport wraps a backend failure. The cause is kept intact for errors.Is/As.
func NewExport(format string, err error) *AppError {
	return &AppError{
		Code:       CodeExport,
		Message:    "export failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"format": format},
		Err:        err,
	}
}

// NewDatabase wraps a failed query (500). The cause stays internal.
func NewDatabase(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "database query failed",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

// NewQueryTimeout reports a query cut off by the statement timeout or the caller's deadline (504).
func NewQueryTimeout(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "report query timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Details:    map[string]any{"operation": operation, "reason": "timeout"},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

// IsConfiguration checks if error is CodeConfiguration
func IsConfiguration(err error) bool { return HasCode(err, CodeConfiguration) }

// IsUnsupportedFormat checks if error is CodeUnsupportedFormat
func IsUnsupportedFormat(err error) bool { return HasCode(err, CodeUnsupportedFormat) }

// IsAggregationInconsistency checks if error is CodeAggregationInconsistency
func IsAggregationInconsistency(err error) bool {
	return HasCode(err, CodeAggregationInconsistency)
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }
