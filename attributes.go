package caddyshibclaims

import (
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// Re-export attribute types from domain package
type AttributeDescriptor = domain.AttributeDescriptor
type AttributeCatalog = domain.AttributeCatalog
type AttributeValues = domain.AttributeValues
type AttributeGetter = domain.AttributeGetter

// Re-export attribute functions
var (
	DefaultAttributeCatalog = domain.DefaultAttributeCatalog
	ExtractAttributes       = domain.ExtractAttributes
	MergeCatalogs           = domain.MergeCatalogs
	ResolveAttributeName    = domain.ResolveAttributeName
)
