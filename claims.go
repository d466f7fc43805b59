package caddyshibclaims

import (
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// Re-export claim and identity types from domain package
type Claim = domain.Claim
type Identity = domain.Identity
type ClaimAction = domain.ClaimAction
type ClaimActions = domain.ClaimActions
type ClaimHeaderMapping = domain.ClaimHeaderMapping

// Re-export well-known claim type constants
const (
	ClaimFirstName = domain.ClaimFirstName
	ClaimLastName  = domain.ClaimLastName
	ClaimPVI       = domain.ClaimPVI
	ClaimEPPN      = domain.ClaimEPPN
	ClaimUID       = domain.ClaimUID
	ClaimEmail     = domain.ClaimEmail
	ClaimGroup     = domain.ClaimGroup

	DefaultIssuer = domain.DefaultIssuer
)

// Re-export transform names accepted by CompileRule
const (
	TransformNone      = domain.TransformNone
	TransformLowercase = domain.TransformLowercase
	TransformUppercase = domain.TransformUppercase
	TransformTrim      = domain.TransformTrim
	TransformSplit     = domain.TransformSplit
)

const MaxHeaderValueLength = domain.MaxHeaderValueLength

// Re-export claim action constructors and helpers
var (
	MapClaim       = domain.MapClaim
	TransformClaim = domain.TransformClaim
	ExpandClaim    = domain.ExpandClaim
	CompileRule    = domain.CompileRule

	LowercaseValue = domain.LowercaseValue
	UppercaseValue = domain.UppercaseValue
	TrimValue      = domain.TrimValue
	SplitValues    = domain.SplitValues

	DefaultClaimActions = domain.DefaultClaimActions
	BuildIdentity       = domain.BuildIdentity

	MapClaimsToHeaders = domain.MapClaimsToHeaders
	IsValidHeaderName  = domain.IsValidHeaderName
)
