package caddyshibclaims

import (
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// Re-export error types from domain package
type ErrorCode = domain.ErrorCode
type AppError = domain.AppError
type JSONErrorResponse = domain.JSONErrorResponse
type JSONErrorDetail = domain.JSONErrorDetail

// Re-export error code constants
const (
	ErrCodeConfigMissing    = domain.ErrCodeConfigMissing
	ErrCodeConfigInvalid    = domain.ErrCodeConfigInvalid
	ErrCodeExtractionFailed = domain.ErrCodeExtractionFailed
	ErrCodeUnexpected       = domain.ErrCodeUnexpected
	ErrCodeRulesUnavailable = domain.ErrCodeRulesUnavailable
	ErrCodeBadRequest       = domain.ErrCodeBadRequest
)

// Re-export error constructors
var (
	ConfigError          = domain.ConfigError
	ConfigMissingError   = domain.ConfigMissingError
	ExtractionError      = domain.ExtractionError
	UnexpectedError      = domain.UnexpectedError
	RulesError           = domain.RulesError
	BadRequestError      = domain.BadRequestError
	NewJSONErrorResponse = domain.NewJSONErrorResponse
)
