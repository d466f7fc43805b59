// Command claimsdemo runs a demo application protected by the claims
// middleware, for manual testing behind cmd/spagent.
// Usage: go run ./cmd/claimsdemo [-rules rules.yaml] [-require]
//
// Routes:
//   - /         plain text page echoing the forwarded claim headers
//   - /whoami   the authenticated identity as JSON
//   - /metrics  Prometheus metrics
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	caddyshibclaims "github.com/philiph/caddy-shib-claims"
)

func main() {
	addr := flag.String("addr", ":9080", "Address to listen on")
	rulesFile := flag.String("rules", "", "YAML or JSON claim rules file (default: built-in eduPerson rules)")
	prefix := flag.String("prefix", "", "Attribute header prefix the SP applies, e.g. X-Shib-")
	require := flag.Bool("require", false, "Require a session instead of passing anonymous requests through")
	loginURL := flag.String("login-url", "/Shibboleth.sso/Login", "Session initiator URL for require mode")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	var source caddyshibclaims.RuleSource
	if *rulesFile != "" {
		fileSource := caddyshibclaims.NewFileRuleSource(*rulesFile, logger)
		if err := fileSource.Load(); err != nil {
			log.Fatalf("Failed to load rules from %s: %v", *rulesFile, err)
		}
		source = fileSource
	} else {
		source = caddyshibclaims.NewDefaultRuleSource()
	}

	catalog, err := source.Catalog()
	if err != nil {
		log.Fatalf("Failed to read attribute catalog: %v", err)
	}
	actions, err := source.ClaimActions()
	if err != nil {
		log.Fatalf("Failed to read claim rules: %v", err)
	}

	pipeline, err := caddyshibclaims.NewPipeline(catalog, actions, caddyshibclaims.DefaultIssuer, caddyshibclaims.Hooks{})
	if err != nil {
		log.Fatalf("Failed to build claims pipeline: %v", err)
	}

	registry := prometheus.NewRegistry()
	recorder := caddyshibclaims.NewPrometheusMetricsRecorderWithRegistry(registry)

	auth, err := caddyshibclaims.NewAuthenticator(
		pipeline,
		caddyshibclaims.NewHeaderSourceFactory(*prefix),
		caddyshibclaims.NewHeaderSessionDetector(caddyshibclaims.DefaultSessionHeader, caddyshibclaims.DefaultSessionCookiePrefix),
		caddyshibclaims.WithMetricsRecorder(recorder),
		caddyshibclaims.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to build authenticator: %v", err)
	}

	opts := []caddyshibclaims.MiddlewareOption{
		caddyshibclaims.ForwardClaimHeaders("",
			caddyshibclaims.ClaimHeaderMapping{Claim: caddyshibclaims.ClaimEPPN, HeaderName: "X-Remote-User"},
			caddyshibclaims.ClaimHeaderMapping{Claim: caddyshibclaims.ClaimEmail, HeaderName: "X-Remote-Mail"},
			caddyshibclaims.ClaimHeaderMapping{Claim: caddyshibclaims.ClaimGroup, HeaderName: "X-Remote-Groups"},
		),
		caddyshibclaims.StripAttributeHeaders(*prefix, caddyshibclaims.DefaultSessionHeader),
		caddyshibclaims.MiddlewareLogger(logger),
	}
	if *require {
		opts = append(opts, caddyshibclaims.RequireSession(*loginURL))
	}
	claims := caddyshibclaims.Middleware(auth, opts...)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(claims)
		r.Get("/", index)
		r.Get("/whoami", whoami)
	})

	log.Printf("Demo app starting on %s", *addr)
	log.Printf("  Rules:   %d claim rules over %d attributes", len(actions), len(catalog))
	log.Printf("  Whoami:  http://localhost%s/whoami", *addr)
	log.Printf("  Metrics: http://localhost%s/metrics", *addr)

	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// index echoes the forwarded claim headers, demonstrating what a protected
// application actually receives.
func index(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "claimsdemo: headers received from the claims middleware")
	fmt.Fprintln(w)
	for _, name := range []string{"X-Remote-User", "X-Remote-Mail", "X-Remote-Groups"} {
		fmt.Fprintf(w, "%s: %s\n", name, r.Header.Get(name))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "raw eppn header: %q (stripped by the middleware)\n", r.Header.Get("eppn"))
}

// whoami renders the authenticated identity as JSON, or 401 when the
// request reached the handler anonymously in pass mode.
func whoami(w http.ResponseWriter, r *http.Request) {
	identity, ok := caddyshibclaims.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "no identity: no Shibboleth session on this request", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(identity); err != nil {
		http.Error(w, "failed to encode identity", http.StatusInternalServerError)
	}
}
