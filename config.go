package caddyshibclaims

import (
	"fmt"

	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/environattrs"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/headerattrs"
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// Attribute source selection.
const (
	// SourceHeaders reads attributes from request headers stamped by a
	// Shibboleth SP sitting in front of this server.
	SourceHeaders = "headers"

	// SourceEnviron reads attributes from the process environment. This
	// matches mod_shib running the application as a child process.
	SourceEnviron = "environ"

	// SourceFCGI reads attributes from FastCGI params, the usual setup
	// when the Shibboleth SP fronts a FastCGI application.
	SourceFCGI = "fcgi"
)

// Session handling modes.
const (
	// ModePass builds an identity when a session is present and passes the
	// request through either way. Downstream handlers decide what an
	// anonymous request may do.
	ModePass = "pass"

	// ModeRequire rejects requests without a Shibboleth session, either by
	// redirecting to LoginURL or with 401 Unauthorized.
	ModeRequire = "require"
)

// Config holds the configuration for the shib_claims handler.
type Config struct {
	// Issuer is the issuer label recorded on every built identity.
	// Defaults to "Shibboleth".
	Issuer string `json:"issuer,omitempty"`

	// Source selects where attributes are read from: "headers", "environ"
	// or "fcgi". Defaults to "headers".
	Source string `json:"source,omitempty"`

	// Mode controls what happens when no Shibboleth session is present:
	// "pass" or "require". Defaults to "pass".
	Mode string `json:"mode,omitempty"`

	// LoginURL is where require mode redirects unauthenticated requests,
	// typically the SP's session initiator such as "/Shibboleth.sso/Login".
	// The original URL is appended as a target query parameter, the
	// Shibboleth convention. If empty, require mode responds with 401.
	LoginURL string `json:"login_url,omitempty"`

	// HeaderPrefix is the prefix the SP applies to attribute headers,
	// for example "X-Shib-". Only used with the headers source.
	// Empty means attributes arrive under their bare names.
	HeaderPrefix string `json:"header_prefix,omitempty"`

	// SessionHeader is the header that signals an active SP session.
	// Defaults to "Shib-Session-Id". Set to "-" to disable header
	// detection. Only used with the headers source.
	SessionHeader string `json:"session_header,omitempty"`

	// SessionCookiePrefix is the cookie name prefix that signals an active
	// SP session when the session header is absent. Defaults to
	// "_shibsession_". Set to "-" to disable cookie detection.
	SessionCookiePrefix string `json:"session_cookie_prefix,omitempty"`

	// SessionVariable is the environment variable that signals an active
	// SP session. Defaults to "Shib-Session-ID". Only used with the
	// environ and fcgi sources.
	SessionVariable string `json:"session_variable,omitempty"`

	// AttributeMapFile is the path to a Shibboleth attribute-map.xml whose
	// attribute ids extend the catalog of recognized attributes.
	AttributeMapFile string `json:"attribute_map_file,omitempty"`

	// RulesFile is the path to a YAML or JSON file declaring attributes
	// and claim rules. Cannot be combined with inline Claims.
	RulesFile string `json:"rules_file,omitempty"`

	// RulesReloadInterval is how often RulesFile is re-read in the
	// background, for example "5m" or "1h". Defaults to "5m".
	// Set to "0" to disable background reloading.
	RulesReloadInterval string `json:"rules_reload_interval,omitempty"`

	// Attributes declares additional attributes to recognize beyond the
	// built-in catalog and the attribute map file.
	Attributes []AttributeConfig `json:"attributes,omitempty"`

	// Claims declares inline claim rules. When neither Claims nor
	// RulesFile is set, the built-in eduPerson rules apply.
	Claims []ClaimRule `json:"claims,omitempty"`

	// ForwardClaims maps built claims onto request headers for the
	// upstream handler. Header names must start with "X-".
	ForwardClaims []ClaimHeaderMapping `json:"forward_claims,omitempty"`

	// ClaimHeaderPrefix is prepended to every ForwardClaims header name,
	// for example "X-Claim-". Must itself start with "X-" when set.
	ClaimHeaderPrefix string `json:"claim_header_prefix,omitempty"`

	// StripHeaders removes raw attribute and session headers from the
	// request after extraction, so upstream handlers only ever see the
	// verified ForwardClaims headers and never spoofable raw values.
	// Defaults to true. Only applies to the headers source.
	StripHeaders *bool `json:"strip_headers,omitempty"`

	// MetricsEnabled exposes Prometheus metrics for authentication
	// outcomes, claim counts and rule reloads. Defaults to false.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`
}

// AttributeConfig declares one attribute for the catalog.
type AttributeConfig struct {
	// ID is the attribute id as the SP exports it, for example "eppn".
	ID string `json:"id"`

	// DisplayName is an optional human-readable label.
	DisplayName string `json:"display_name,omitempty"`
}

// ClaimRule declares one inline claim rule.
type ClaimRule struct {
	// Attribute is the attribute id the rule reads.
	Attribute string `json:"attribute"`

	// Claim is the claim type the rule emits, for example "EPPN".
	Claim string `json:"claim"`

	// Transform is one of "none", "lowercase", "uppercase", "trim" or
	// "split". Defaults to "none".
	Transform string `json:"transform,omitempty"`

	// Separator is the delimiter for the split transform. Defaults to ";".
	Separator string `json:"separator,omitempty"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Source {
	case "", SourceHeaders, SourceEnviron, SourceFCGI:
	default:
		return fmt.Errorf("source must be %q, %q or %q, got %q", SourceHeaders, SourceEnviron, SourceFCGI, c.Source)
	}

	switch c.Mode {
	case "", ModePass, ModeRequire:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModePass, ModeRequire, c.Mode)
	}

	if c.RulesFile != "" && len(c.Claims) > 0 {
		return fmt.Errorf("only one of rules_file or inline claims can be specified")
	}

	// Validate inline attribute declarations
	for i, a := range c.Attributes {
		if a.ID == "" {
			return fmt.Errorf("attributes[%d]: id is required", i)
		}
	}

	// Validate inline claim rules by compiling them
	for i, r := range c.Claims {
		if _, err := domain.CompileRule(r.Attribute, r.Claim, r.Transform, r.Separator); err != nil {
			return fmt.Errorf("claims[%d]: %v", i, err)
		}
	}

	// Validate claim header prefix
	if c.ClaimHeaderPrefix != "" {
		if !domain.IsValidHeaderName(c.ClaimHeaderPrefix) {
			return fmt.Errorf("claim_header_prefix %q must start with X- and contain only A-Za-z0-9-", c.ClaimHeaderPrefix)
		}
	}

	// Validate claim header mappings
	for i, m := range c.ForwardClaims {
		if m.Claim == "" {
			return fmt.Errorf("forward_claims[%d]: claim is required", i)
		}
		if m.HeaderName == "" {
			return fmt.Errorf("forward_claims[%d]: header_name is required", i)
		}

		// If prefix is set, validate the final combined name
		// Otherwise, validate the header name directly (must start with X-)
		if c.ClaimHeaderPrefix != "" {
			finalName := ApplyHeaderPrefix(c.ClaimHeaderPrefix, m.HeaderName)
			if !domain.IsValidHeaderName(finalName) {
				return fmt.Errorf("forward_claims[%d]: header_name %q with prefix %q results in invalid name %q: must start with X- and contain only A-Za-z0-9-", i, m.HeaderName, c.ClaimHeaderPrefix, finalName)
			}
		} else {
			if !domain.IsValidHeaderName(m.HeaderName) {
				return fmt.Errorf("forward_claims[%d]: header_name %q must start with X- and contain only A-Za-z0-9-", i, m.HeaderName)
			}
		}
	}

	if c.RulesReloadInterval != "" && c.RulesReloadInterval != "0" {
		if _, err := parseDuration(c.RulesReloadInterval); err != nil {
			return fmt.Errorf("rules_reload_interval: %v", err)
		}
	}

	return nil
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Issuer == "" {
		c.Issuer = domain.DefaultIssuer
	}
	if c.Source == "" {
		c.Source = SourceHeaders
	}
	if c.Mode == "" {
		c.Mode = ModePass
	}
	if c.SessionHeader == "" {
		c.SessionHeader = headerattrs.DefaultSessionHeader
	}
	if c.SessionCookiePrefix == "" {
		c.SessionCookiePrefix = headerattrs.DefaultSessionCookiePrefix
	}
	if c.SessionVariable == "" {
		c.SessionVariable = environattrs.DefaultSessionVariable
	}
	if c.RulesReloadInterval == "" {
		c.RulesReloadInterval = "5m"
	}
	if c.StripHeaders == nil {
		c.StripHeaders = boolPtr(true)
	}
}

// ApplyHeaderPrefix prepends prefix to header name.
// If prefix is empty, returns headerName unchanged.
func ApplyHeaderPrefix(prefix, headerName string) string {
	if prefix == "" {
		return headerName
	}
	return prefix + headerName
}

func boolPtr(b bool) *bool {
	return &b
}
