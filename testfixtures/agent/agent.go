// Package agent provides a test Shibboleth SP agent for integration
// testing. It simulates mod_shib in a reverse proxy deployment: requests
// carrying a valid session cookie get the session header and released
// attribute headers stamped before they reach the protected application,
// and client-supplied copies of those headers are dropped either way.
package agent

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

const (
	sessionHeader       = "Shib-Session-Id"
	sessionCookiePrefix = "_shibsession_"
)

// defaultAttributes is the eduPerson set a typical SP releases. The agent
// always clears these from incoming requests, plus any attribute it ever
// released itself.
var defaultAttributes = []string{
	"givenName", "sn", "wiscEduPVI", "eppn", "uid", "mail", "isMemberOf",
}

// TestAgent is a fake SP agent fronting an upstream handler.
type TestAgent struct {
	t      testing.TB
	server *httptest.Server

	mu       sync.Mutex
	prefix   string
	managed  map[string]struct{}
	sessions map[string]map[string]string
}

// New starts an agent in front of upstream. Call Close when done.
func New(t testing.TB, upstream http.Handler) *TestAgent {
	t.Helper()

	a := &TestAgent{
		t:        t,
		managed:  make(map[string]struct{}),
		sessions: make(map[string]map[string]string),
	}
	for _, id := range defaultAttributes {
		a.managed[id] = struct{}{}
	}

	a.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.stamp(r)
		upstream.ServeHTTP(w, r)
	}))

	return a
}

// Close shuts down the agent server.
func (a *TestAgent) Close() {
	if a.server != nil {
		a.server.Close()
	}
}

// BaseURL returns the base URL of the agent server.
func (a *TestAgent) BaseURL() string {
	return a.server.URL
}

// Client returns an HTTP client configured for the agent server.
func (a *TestAgent) Client() *http.Client {
	return a.server.Client()
}

// SetHeaderPrefix makes the agent stamp attributes under prefixed names,
// for example "X-Shib-". Matches the attributePrefix SP setting.
func (a *TestAgent) SetHeaderPrefix(prefix string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prefix = prefix
}

// Login creates a session releasing the given attributes and returns the
// session cookie a browser would carry after the SSO handshake.
func (a *TestAgent) Login(attrs map[string]string) *http.Cookie {
	a.t.Helper()

	id := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()

	released := make(map[string]string, len(attrs))
	for k, v := range attrs {
		released[k] = v
		a.managed[k] = struct{}{}
	}
	a.sessions[id] = released

	return &http.Cookie{
		Name:  sessionCookiePrefix + "default",
		Value: id,
		Path:  "/",
	}
}

// Logout removes the session the cookie refers to. Subsequent requests
// with the cookie pass through unauthenticated.
func (a *TestAgent) Logout(c *http.Cookie) {
	a.t.Helper()

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, c.Value)
}

// stamp rewrites the request the way the SP would: managed headers are
// cleared unconditionally, then the active session's attributes are set.
func (a *TestAgent) stamp(r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r.Header.Del(sessionHeader)
	for id := range a.managed {
		r.Header.Del(a.prefix + id)
	}

	id, attrs, ok := a.sessionFor(r)
	if !ok {
		return
	}

	r.Header.Set(sessionHeader, "_"+strings.ReplaceAll(id, "-", ""))
	for k, v := range attrs {
		r.Header.Set(a.prefix+k, v)
	}
}

// sessionFor resolves the request's session cookie to its released
// attributes. Callers must hold mu.
func (a *TestAgent) sessionFor(r *http.Request) (string, map[string]string, bool) {
	for _, c := range r.Cookies() {
		if !strings.HasPrefix(c.Name, sessionCookiePrefix) {
			continue
		}
		if attrs, ok := a.sessions[c.Value]; ok {
			return c.Value, attrs, true
		}
	}
	return "", nil, false
}
