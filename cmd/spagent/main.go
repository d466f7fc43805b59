// Command spagent runs a fake Shibboleth SP agent in front of an upstream
// application for manual testing. It plays the part mod_shib plays in a
// production deployment: login establishes a session, and every proxied
// request carries the session header plus the released attribute headers.
// Usage: go run ./cmd/spagent -upstream http://localhost:9080
//
// Endpoints:
//   - /Shibboleth.sso/Login?user=bbadger&target=/  starts a session
//   - /Shibboleth.sso/Logout                       ends the session
//
// Everything else is proxied to -upstream with headers stamped.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	sessionHeader     = "Shib-Session-Id"
	sessionCookieName = "_shibsession_default"
)

// demoUsers are the identities the agent can log in. Attribute ids follow
// the Shibboleth attribute-map defaults.
var demoUsers = map[string]map[string]string{
	"bbadger": {
		"givenName":  "Bucky",
		"sn":         "Badger",
		"wiscEduPVI": "UW999A999",
		"eppn":       "bbadger@wisc.edu",
		"uid":        "bbadger",
		"mail":       "bucky.badger@wisc.edu",
		"isMemberOf": "uw:staff;uw:it:admins",
	},
	"tgopher": {
		"givenName":  "Topher",
		"sn":         "Gopher",
		"wiscEduPVI": "UW111B111",
		"eppn":       "tgopher@wisc.edu",
		"uid":        "tgopher",
		"mail":       "topher.gopher@wisc.edu",
		"isMemberOf": "uw:students",
	},
}

type agent struct {
	prefix string
	proxy  *httputil.ReverseProxy

	mu       sync.Mutex
	sessions map[string]map[string]string
}

func main() {
	port := flag.Int("port", 8090, "Port to listen on")
	upstream := flag.String("upstream", "http://localhost:9080", "Upstream application URL")
	prefix := flag.String("prefix", "", "Attribute header prefix, e.g. X-Shib-")
	flag.Parse()

	target, err := url.Parse(*upstream)
	if err != nil {
		log.Fatalf("Invalid upstream URL %q: %v", *upstream, err)
	}

	a := &agent{
		prefix:   *prefix,
		proxy:    httputil.NewSingleHostReverseProxy(target),
		sessions: make(map[string]map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/Shibboleth.sso/Login", a.login)
	mux.HandleFunc("/Shibboleth.sso/Logout", a.logout)
	mux.HandleFunc("/", a.serve)

	log.Printf("SP agent starting on http://localhost:%d", *port)
	log.Printf("  Upstream: %s", *upstream)
	log.Printf("  Login:    http://localhost:%d/Shibboleth.sso/Login?user=bbadger", *port)
	log.Printf("  Logout:   http://localhost:%d/Shibboleth.sso/Logout", *port)
	log.Println()
	for name, attrs := range demoUsers {
		log.Printf("Demo user %s: %s", name, attrs["eppn"])
	}

	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// login starts a session for the requested demo user and sends the browser
// back to the target path.
func (a *agent) login(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = "bbadger"
	}
	attrs, ok := demoUsers[user]
	if !ok {
		http.Error(w, "unknown demo user: "+user, http.StatusNotFound)
		return
	}

	id := uuid.NewString()
	a.mu.Lock()
	a.sessions[id] = attrs
	a.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})

	log.Printf("Session %s started for %s", id[:8], attrs["eppn"])
	http.Redirect(w, r, safeTarget(r.URL.Query().Get("target")), http.StatusFound)
}

// logout drops the session and expires the cookie.
func (a *agent) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		a.mu.Lock()
		delete(a.sessions, c.Value)
		a.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	http.Redirect(w, r, safeTarget(r.URL.Query().Get("return")), http.StatusFound)
}

// serve stamps the request like the SP would and proxies it upstream.
// Client-supplied copies of managed headers are dropped first, so the
// upstream never sees spoofed values.
func (a *agent) serve(w http.ResponseWriter, r *http.Request) {
	r.Header.Del(sessionHeader)
	for _, attrs := range demoUsers {
		for id := range attrs {
			r.Header.Del(a.prefix + id)
		}
	}

	if c, err := r.Cookie(sessionCookieName); err == nil {
		a.mu.Lock()
		attrs, ok := a.sessions[c.Value]
		a.mu.Unlock()

		if ok {
			r.Header.Set(sessionHeader, "_"+strings.ReplaceAll(c.Value, "-", ""))
			for id, v := range attrs {
				r.Header.Set(a.prefix+id, v)
			}
		}
	}

	a.proxy.ServeHTTP(w, r)
}

// safeTarget keeps post-login redirects on this host.
func safeTarget(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}
