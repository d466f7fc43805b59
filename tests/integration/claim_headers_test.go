//go:build integration

package integration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/quick"

	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	caddyshibclaims "github.com/philiph/caddy-shib-claims"
)

// capturedHeaders records headers seen by the downstream handler
type capturedHeaders struct {
	headers http.Header
	called  bool
}

func (c *capturedHeaders) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	c.headers = r.Header.Clone()
	c.called = true
	w.WriteHeader(http.StatusOK)
	return nil
}

var _ caddyhttp.Handler = (*capturedHeaders)(nil)

// newClaimsHandler builds the handler over the default eduPerson rules
// with header-based attribute and session detection.
func newClaimsHandler(t *testing.T, config caddyshibclaims.Config) *caddyshibclaims.ShibClaims {
	t.Helper()
	return caddyshibclaims.NewShibClaimsForTest(
		config,
		caddyshibclaims.NewDefaultRuleSource(),
		caddyshibclaims.NewHeaderSourceFactory(config.HeaderPrefix),
		caddyshibclaims.NewHeaderSessionDetector(caddyshibclaims.DefaultSessionHeader, caddyshibclaims.DefaultSessionCookiePrefix),
	)
}

// newSessionRequest builds a request the way the SP agent stamps it: the
// session marker plus one header per released attribute.
func newSessionRequest(t *testing.T, attrs map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(caddyshibclaims.DefaultSessionHeader, "_session_0123456789abcdef")
	for k, v := range attrs {
		req.Header.Set(k, v)
	}
	return req
}

// TestClaimHeaders_ReachDownstreamHandler tests that attributes are mapped
// to claims and forwarded as headers to downstream handlers.
func TestClaimHeaders_ReachDownstreamHandler(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
		},
	})

	captured := &capturedHeaders{}
	req := newSessionRequest(t, map[string]string{"eppn": "bbadger@wisc.edu"})
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}

	got := captured.headers.Get("X-Remote-User")
	if got != "bbadger@wisc.edu" {
		t.Errorf("X-Remote-User header = %q, want %q", got, "bbadger@wisc.edu")
	}
}

// TestClaimHeaders_TransformApplied tests that the default lowercase rule
// for mail is applied before forwarding.
func TestClaimHeaders_TransformApplied(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEmail, HeaderName: "X-Remote-Mail"},
		},
	})

	captured := &capturedHeaders{}
	req := newSessionRequest(t, map[string]string{"mail": "Bucky.Badger@WISC.EDU"})
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}

	got := captured.headers.Get("X-Remote-Mail")
	if got != "bucky.badger@wisc.edu" {
		t.Errorf("X-Remote-Mail header = %q, want %q", got, "bucky.badger@wisc.edu")
	}
}

// TestClaimHeaders_MultiValueGroups tests that the split rule for
// isMemberOf produces one header joining all group claims.
func TestClaimHeaders_MultiValueGroups(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimGroup, HeaderName: "X-Remote-Groups"},
		},
	})

	captured := &capturedHeaders{}
	req := newSessionRequest(t, map[string]string{"isMemberOf": "uw:staff;uw:faculty;uw:it:admins"})
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}

	got := captured.headers.Get("X-Remote-Groups")
	if got != "uw:staff;uw:faculty;uw:it:admins" {
		t.Errorf("X-Remote-Groups header = %q, want %q", got, "uw:staff;uw:faculty;uw:it:admins")
	}
}

// TestClaimHeaders_StripsIncomingRawHeaders tests that raw attribute and
// session headers never travel past the handler.
func TestClaimHeaders_StripsIncomingRawHeaders(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
		},
	})

	captured := &capturedHeaders{}
	req := newSessionRequest(t, map[string]string{
		"eppn": "bbadger@wisc.edu",
		"uid":  "bbadger",
	})
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}

	// Raw attribute headers are gone downstream
	for _, raw := range []string{"eppn", "uid", caddyshibclaims.DefaultSessionHeader} {
		if got := captured.headers.Get(raw); got != "" {
			t.Errorf("raw header %q survived stripping: %q", raw, got)
		}
	}

	// The verified claim header is all that remains
	if got := captured.headers.Get("X-Remote-User"); got != "bbadger@wisc.edu" {
		t.Errorf("X-Remote-User header = %q, want %q", got, "bbadger@wisc.edu")
	}
}

// TestClaimHeaders_SpoofedForwardHeader_Overwritten tests that a
// client-supplied claim header is replaced with the verified value.
func TestClaimHeaders_SpoofedForwardHeader_Overwritten(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
		},
	})

	captured := &capturedHeaders{}
	req := newSessionRequest(t, map[string]string{"eppn": "bbadger@wisc.edu"})
	req.Header.Set("X-Remote-User", "admin@wisc.edu") // Spoofed header
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}

	got := captured.headers.Get("X-Remote-User")
	if got != "bbadger@wisc.edu" {
		t.Errorf("X-Remote-User header = %q, want %q (spoofed value should be overwritten)", got, "bbadger@wisc.edu")
	}
}

// TestClaimHeaders_HeaderPrefix tests extraction and stripping under an SP
// attribute header prefix.
func TestClaimHeaders_HeaderPrefix(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		HeaderPrefix: "X-Shib-",
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
		},
	})

	captured := &capturedHeaders{}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(caddyshibclaims.DefaultSessionHeader, "_session_0123456789abcdef")
	req.Header.Set("X-Shib-eppn", "bbadger@wisc.edu")
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}

	if got := captured.headers.Get("X-Remote-User"); got != "bbadger@wisc.edu" {
		t.Errorf("X-Remote-User header = %q, want %q", got, "bbadger@wisc.edu")
	}
	if got := captured.headers.Get("X-Shib-eppn"); got != "" {
		t.Errorf("prefixed raw header survived stripping: %q", got)
	}
}

// TestClaimHeaders_CRLFInAttributeValue_Sanitized tests that header
// injection via attribute values cannot reach downstream handlers.
func TestClaimHeaders_CRLFInAttributeValue_Sanitized(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
		},
	})

	captured := &capturedHeaders{}
	req := newSessionRequest(t, nil)
	// http.Header.Set would reject the raw CR/LF, so place it directly.
	req.Header["Eppn"] = []string{"bbadger@wisc.edu\r\nX-Injected: evil"}
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}

	got := captured.headers.Get("X-Remote-User")
	if strings.ContainsAny(got, "\r\n") {
		t.Errorf("forwarded header contains CR/LF: %q", got)
	}
	if !strings.Contains(got, "bbadger@wisc.edu") {
		t.Errorf("forwarded header lost the legitimate value: %q", got)
	}
	if got := captured.headers.Get("X-Injected"); got != "" {
		t.Errorf("injected header reached downstream: %q", got)
	}
}

// TestClaimHeaders_Property_OnlyConfiguredHeadersAdded checks that for
// arbitrary attribute values the downstream handler gains at most the
// configured claim headers beyond what the request already carried.
func TestClaimHeaders_Property_OnlyConfiguredHeadersAdded(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
			{Claim: caddyshibclaims.ClaimGroup, HeaderName: "X-Remote-Groups"},
		},
	})

	allowedHeaders := map[string]bool{
		"X-Remote-User":   true,
		"X-Remote-Groups": true,
	}

	f := func(eppn, groups string) bool {
		captured := &capturedHeaders{}
		req := newSessionRequest(t, nil)
		req.Header["Eppn"] = []string{eppn}
		req.Header["Ismemberof"] = []string{groups}
		rec := httptest.NewRecorder()

		if err := s.ServeHTTP(rec, req, captured); err != nil {
			return false
		}
		if !captured.called {
			return false
		}

		for header := range captured.headers {
			if strings.HasPrefix(header, "X-") && !allowedHeaders[header] {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
