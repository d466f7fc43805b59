package caddyshibclaims

import (
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/attrmap"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/environattrs"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/headerattrs"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/rulefile"
	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// Re-export port interfaces
type AttributeSource = ports.AttributeSource
type SourceFactory = ports.SourceFactory
type SessionDetector = ports.SessionDetector
type RuleSource = ports.RuleSource

// Re-export header source adapters
type HeaderSourceFactory = headerattrs.Factory
type HeaderSessionDetector = headerattrs.Detector

const (
	DefaultSessionHeader       = headerattrs.DefaultSessionHeader
	DefaultSessionCookiePrefix = headerattrs.DefaultSessionCookiePrefix
	DefaultSessionVariable     = environattrs.DefaultSessionVariable
)

var (
	NewHeaderSourceFactory   = headerattrs.NewFactory
	NewHeaderSessionDetector = headerattrs.NewDetector
	StripUntrusted           = headerattrs.StripUntrusted
)

// Re-export environment source adapters
type EnvironSourceFactory = environattrs.Factory
type EnvironSessionDetector = environattrs.Detector

var (
	NewEnvironSourceFactory   = environattrs.NewFactory
	NewFCGISourceFactory      = environattrs.NewFCGIFactory
	NewEnvironSessionDetector = environattrs.NewDetector
)

// Re-export the attribute map parser
var (
	ParseAttributeMap     = attrmap.Parse
	ParseAttributeMapFile = attrmap.ParseFile
)

// Re-export rule source adapters and options
type FileRuleSource = rulefile.FileRuleSource
type InMemoryRuleSource = rulefile.InMemoryRuleSource
type RuleSourceOption = rulefile.Option

var (
	NewFileRuleSource            = rulefile.NewFileRuleSource
	NewFileRuleSourceWithRefresh = rulefile.NewFileRuleSourceWithRefresh
	NewInMemoryRuleSource        = rulefile.NewInMemoryRuleSource
	NewDefaultRuleSource         = rulefile.NewDefaultRuleSource
	WithRuleMetricsRecorder      = rulefile.WithMetricsRecorder
	WithRuleReloadCallback       = rulefile.WithReloadCallback
)
