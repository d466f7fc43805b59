//go:build integration

package integration

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	caddyshibclaims "github.com/philiph/caddy-shib-claims"
)

// TestRequireMode_NoSession_RedirectsToLogin tests that require mode sends
// anonymous requests to the session initiator.
func TestRequireMode_NoSession_RedirectsToLogin(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		Mode:     caddyshibclaims.ModeRequire,
		LoginURL: "/Shibboleth.sso/Login",
	})

	captured := &capturedHeaders{}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if captured.called {
		t.Error("downstream handler should NOT be called without a session")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/Shibboleth.sso/Login?") {
		t.Errorf("Location = %q, want session initiator redirect", location)
	}
}

// TestRequireMode_TargetCarriesOriginalURL tests that the redirect carries
// the original URL in the target parameter, the Shibboleth convention.
func TestRequireMode_TargetCarriesOriginalURL(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		Mode:     caddyshibclaims.ModeRequire,
		LoginURL: "/Shibboleth.sso/Login",
	})

	captured := &capturedHeaders{}
	req := httptest.NewRequest(http.MethodGet, "/reports/2025?quarter=3", nil)
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location is not a valid URL: %v", err)
	}

	target := location.Query().Get("target")
	if target != "/reports/2025?quarter=3" {
		t.Errorf("target = %q, want %q", target, "/reports/2025?quarter=3")
	}
}

// TestRequireMode_SchemeRelativeTarget_Rejected tests that a request whose
// path would bounce the browser off-host is not echoed into the target.
func TestRequireMode_SchemeRelativeTarget_Rejected(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		Mode:     caddyshibclaims.ModeRequire,
		LoginURL: "/Shibboleth.sso/Login",
	})

	captured := &capturedHeaders{}
	req := httptest.NewRequest(http.MethodGet, "/phish", nil)
	req.URL.Path = "//evil.example/phish"
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location is not a valid URL: %v", err)
	}

	target := location.Query().Get("target")
	if target != "/" {
		t.Errorf("target = %q, want %q (scheme-relative URLs must not round-trip)", target, "/")
	}
}

// TestRequireMode_NoLoginURL_Responds401 tests that require mode without a
// configured session initiator responds 401 instead of redirecting.
func TestRequireMode_NoLoginURL_Responds401(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		Mode: caddyshibclaims.ModeRequire,
	})

	captured := &capturedHeaders{}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if captured.called {
		t.Error("downstream handler should NOT be called without a session")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestRequireMode_WithSession_PassesThrough tests that an authenticated
// request proceeds downstream in require mode.
func TestRequireMode_WithSession_PassesThrough(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		Mode:     caddyshibclaims.ModeRequire,
		LoginURL: "/Shibboleth.sso/Login",
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
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := captured.headers.Get("X-Remote-User"); got != "bbadger@wisc.edu" {
		t.Errorf("X-Remote-User header = %q, want %q", got, "bbadger@wisc.edu")
	}
}

// TestPassMode_NoSession_CallsNextAnonymously tests that pass mode lets
// anonymous requests through without claim headers.
func TestPassMode_NoSession_CallsNextAnonymously(t *testing.T) {
	s := newClaimsHandler(t, caddyshibclaims.Config{
		ForwardClaims: []caddyshibclaims.ClaimHeaderMapping{
			{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
		},
	})

	captured := &capturedHeaders{}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	if err := s.ServeHTTP(rec, req, captured); err != nil {
		t.Fatalf("ServeHTTP error: %v", err)
	}

	if !captured.called {
		t.Fatal("downstream handler was not called")
	}
	if got := captured.headers.Get("X-Remote-User"); got != "" {
		t.Errorf("anonymous request gained a claim header: %q", got)
	}
}
