// Package environattrs reads SSO attributes from CGI-style variables, the
// carrier used when the application runs as a CGI or FastCGI child of a web
// server whose Shibboleth module exports attributes into the process
// environment instead of headers.
package environattrs

import (
	"net/http"
	"net/http/fcgi"
	"os"
	"strings"

	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// DefaultSessionVariable is the variable mod_shib sets for an authenticated
// session.
const DefaultSessionVariable = "Shib-Session-ID"

// Source is the per-request attribute view over a variable map. Lookup
// tries the exact name first and then a normalized form (lowercased,
// underscores folded to dashes), so "Shib_Session_ID" still answers for
// "Shib-Session-ID" when a server mangles variable names.
//
// HTTP_* variables are never attribute material: they derive from client
// headers and a client could spoof them.
type Source struct {
	exact      map[string]string
	normalized map[string]string
}

// FromMap builds a source from per-request variables, e.g. FastCGI params.
func FromMap(vars map[string]string) *Source {
	s := &Source{
		exact:      make(map[string]string, len(vars)),
		normalized: make(map[string]string, len(vars)),
	}
	for k, v := range vars {
		if strings.HasPrefix(k, "HTTP_") {
			continue
		}
		s.exact[k] = v
		s.normalized[normalizeKey(k)] = v
	}
	return s
}

// FromEnviron builds a source from "key=value" pairs as returned by
// os.Environ. Classic CGI runs one process per request, which makes the
// process environment request-scoped there.
func FromEnviron(environ []string) *Source {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return FromMap(vars)
}

// Lookup implements ports.AttributeSource. Empty values count as absent.
func (s *Source) Lookup(name string) (string, bool) {
	if v, ok := s.exact[name]; ok && v != "" {
		return v, true
	}
	if v, ok := s.normalized[normalizeKey(name)]; ok && v != "" {
		return v, true
	}
	return "", false
}

// Names implements ports.AttributeSource.
func (s *Source) Names() []string {
	names := make([]string, 0, len(s.exact))
	for k := range s.exact {
		names = append(names, k)
	}
	return names
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(k), "_", "-")
}

// Factory builds variable-backed attribute sources. The zero value is not
// usable; construct with NewFactory or NewFCGIFactory.
type Factory struct {
	environ    func() []string
	perRequest func(*http.Request) map[string]string
}

// NewFactory creates a factory reading the process environment on every
// request, for classic CGI deployments. environ defaults to os.Environ.
func NewFactory(environ func() []string) *Factory {
	if environ == nil {
		environ = os.Environ
	}
	return &Factory{environ: environ}
}

// NewFCGIFactory creates a factory reading the FastCGI parameters of each
// request, for deployments served through net/http/fcgi.
func NewFCGIFactory() *Factory {
	return &Factory{perRequest: fcgi.ProcessEnv}
}

// AttributesForRequest implements ports.SourceFactory.
func (f *Factory) AttributesForRequest(r *http.Request) ports.AttributeSource {
	if f.perRequest != nil {
		return FromMap(f.perRequest(r))
	}
	return FromEnviron(f.environ())
}

// Detector checks for the agent's session variable through the same factory
// the attribute lookups use.
type Detector struct {
	variable string
	factory  *Factory
}

// NewDetector creates a detector for the given session variable, empty
// meaning the Shibboleth default.
func NewDetector(variable string, factory *Factory) *Detector {
	if variable == "" {
		variable = DefaultSessionVariable
	}
	return &Detector{variable: variable, factory: factory}
}

// SessionPresent implements ports.SessionDetector.
func (d *Detector) SessionPresent(r *http.Request) bool {
	src := d.factory.AttributesForRequest(r)
	_, ok := src.Lookup(d.variable)
	return ok
}

// Interface guards
var (
	_ ports.AttributeSource = (*Source)(nil)
	_ ports.SourceFactory   = (*Factory)(nil)
	_ ports.SessionDetector = (*Detector)(nil)
)
