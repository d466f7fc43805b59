// Package headerattrs reads SSO attributes from HTTP request headers, the
// carrier used by Shibboleth SP deployments running with ShibUseHeaders or
// behind a trusted proxy that stamps attributes onto forwarded requests.
package headerattrs

import (
	"net/http"
	"net/textproto"
	"strings"

	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// Default markers a Shibboleth SP leaves on requests it authenticated.
const (
	// DefaultSessionHeader is the header carrying the agent's opaque
	// session identifier.
	DefaultSessionHeader = "Shib-Session-Id"

	// DefaultSessionCookiePrefix is the prefix of the agent's session
	// cookies, e.g. "_shibsession_64656661756c74...".
	DefaultSessionCookiePrefix = "_shibsession_"
)

// Source is the per-request attribute view over a header map. Lookup is
// case-insensitive, following HTTP header canonicalization: attribute ID
// "givenName" matches the header "Givenname" a proxy sent. Multiple header
// lines for one attribute are joined with ";", the Shibboleth convention
// for multi-valued attributes.
type Source struct {
	header http.Header
	prefix string
}

// Lookup implements ports.AttributeSource. A header that is present but
// carries only empty values counts as absent.
func (s *Source) Lookup(name string) (string, bool) {
	values := s.header.Values(s.prefix + name)
	if len(values) == 0 {
		return "", false
	}

	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return "", false
	}
	return strings.Join(nonEmpty, ";"), true
}

// Names implements ports.AttributeSource. With a prefix configured, only
// prefixed headers are listed, with the prefix stripped; without one, every
// header name is a candidate and the catalog does the filtering.
func (s *Source) Names() []string {
	canonicalPrefix := textproto.CanonicalMIMEHeaderKey(s.prefix)
	names := make([]string, 0, len(s.header))
	for k := range s.header {
		if s.prefix == "" {
			names = append(names, k)
			continue
		}
		if strings.HasPrefix(k, canonicalPrefix) && len(k) > len(canonicalPrefix) {
			names = append(names, k[len(canonicalPrefix):])
		}
	}
	return names
}

// Factory builds header-backed attribute sources. One factory serves all
// requests of a deployment; it holds no per-request state.
type Factory struct {
	prefix string
}

// NewFactory creates a factory. prefix is prepended to every attribute ID
// before the header lookup, e.g. "X-Shib-" when a proxy namespaces the
// attribute headers it injects. Empty means attribute IDs are header names
// as-is, the mod_shib convention.
func NewFactory(prefix string) *Factory {
	return &Factory{prefix: prefix}
}

// AttributesForRequest implements ports.SourceFactory.
func (f *Factory) AttributesForRequest(r *http.Request) ports.AttributeSource {
	return &Source{header: r.Header, prefix: f.prefix}
}

// Detector checks for the agent's session marker. Presence of the marker
// means the front end authenticated the user; its value stays opaque and is
// never validated here.
type Detector struct {
	header       string
	cookiePrefix string
}

// NewDetector creates a detector checking the given session header and, as
// a fallback, cookies with the given name prefix. Empty arguments select
// the Shibboleth defaults; pass "-" to disable either check.
func NewDetector(header, cookiePrefix string) *Detector {
	if header == "" {
		header = DefaultSessionHeader
	}
	if cookiePrefix == "" {
		cookiePrefix = DefaultSessionCookiePrefix
	}
	return &Detector{header: header, cookiePrefix: cookiePrefix}
}

// SessionPresent implements ports.SessionDetector.
func (d *Detector) SessionPresent(r *http.Request) bool {
	if d.header != "-" && r.Header.Get(d.header) != "" {
		return true
	}
	if d.cookiePrefix != "-" {
		for _, c := range r.Cookies() {
			if strings.HasPrefix(c.Name, d.cookiePrefix) && c.Value != "" {
				return true
			}
		}
	}
	return false
}

// Interface guards
var (
	_ ports.AttributeSource = (*Source)(nil)
	_ ports.SourceFactory   = (*Factory)(nil)
	_ ports.SessionDetector = (*Detector)(nil)
)
