package domain

import (
	"fmt"
	"net/http"
)

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling.
type ErrorCode string

const (
	ErrCodeConfigMissing    ErrorCode = "config_missing"
	ErrCodeConfigInvalid    ErrorCode = "config_invalid"
	ErrCodeExtractionFailed ErrorCode = "extraction_failed"
	ErrCodeUnexpected       ErrorCode = "unexpected_error"
	ErrCodeRulesUnavailable ErrorCode = "rules_unavailable"
	ErrCodeBadRequest       ErrorCode = "bad_request"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// AppError is a structured error with code, message, and optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code for this error code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeRulesUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Title returns a user-friendly title for this error code.
func (c ErrorCode) Title() string {
	switch c {
	case ErrCodeConfigMissing, ErrCodeConfigInvalid:
		return "Configuration Error"
	case ErrCodeExtractionFailed:
		return "Claims Extraction Failed"
	case ErrCodeUnexpected:
		return "Authentication Error"
	case ErrCodeRulesUnavailable:
		return "Claim Rules Unavailable"
	case ErrCodeBadRequest:
		return "Invalid Request"
	default:
		return "Error"
	}
}

// JSONErrorResponse is the standard JSON error format for API endpoints.
type JSONErrorResponse struct {
	Error JSONErrorDetail `json:"error"`
}

// JSONErrorDetail contains error details.
type JSONErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewJSONErrorResponse creates a JSON error response from an AppError.
func NewJSONErrorResponse(err *AppError) JSONErrorResponse {
	return JSONErrorResponse{
		Error: JSONErrorDetail{
			Code:    err.Code.String(),
			Message: err.Message,
		},
	}
}

// ConfigError creates a configuration error.
func ConfigError(message string) *AppError {
	return &AppError{Code: ErrCodeConfigInvalid, Message: message}
}

// ConfigMissingError creates an error for configuration that is absent
// rather than malformed.
func ConfigMissingError(message string) *AppError {
	return &AppError{Code: ErrCodeConfigMissing, Message: message}
}

// ExtractionError creates an error for a claim transform that failed while
// converting an attribute value.
func ExtractionError(attributeID, claimType string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeExtractionFailed,
		Message: fmt.Sprintf("transform attribute %q into claim %q: %v", attributeID, claimType, cause),
		Cause:   cause,
	}
}

// UnexpectedError creates an error for any other failure surfaced while
// assembling an identity.
func UnexpectedError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeUnexpected, Message: message, Cause: cause}
}

// RulesError creates an error for a claim rules source that cannot be read
// or parsed.
func RulesError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeRulesUnavailable, Message: message, Cause: cause}
}

// BadRequestError creates a bad request error.
func BadRequestError(message string) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: message}
}
