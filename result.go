package caddyshibclaims

import (
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// Re-export authentication outcome types from domain package
type Result = domain.Result
type ResultStatus = domain.ResultStatus
type FailureContext = domain.FailureContext
type Hooks = domain.Hooks
type Pipeline = domain.Pipeline

// Re-export result status constants
const (
	StatusNoResult = domain.StatusNoResult
	StatusSuccess  = domain.StatusSuccess
	StatusFailed   = domain.StatusFailed
)

// Re-export result constructors and the pipeline factory
var (
	NoResult          = domain.NoResult
	Succeed           = domain.Succeed
	Fail              = domain.Fail
	NewFailureContext = domain.NewFailureContext
	NewPipeline       = domain.NewPipeline
)
