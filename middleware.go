package caddyshibclaims

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/headerattrs"
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// MiddlewareOption configures the plain net/http middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	requireSession bool
	loginURL       string
	forward        []domain.ClaimHeaderMapping
	headerPrefix   string
	strip          bool
	stripPrefix    string
	stripSession   string
	logger         *zap.Logger
}

// RequireSession rejects requests without a Shibboleth session. With a
// non-empty loginURL the browser is redirected there, with the original
// URL as the target query parameter; otherwise the response is 401.
func RequireSession(loginURL string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.requireSession = true
		c.loginURL = loginURL
	}
}

// ForwardClaimHeaders stamps the given claim headers onto authenticated
// requests before they reach the next handler. prefix is prepended to
// every header name and may be empty.
func ForwardClaimHeaders(prefix string, mappings ...domain.ClaimHeaderMapping) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.headerPrefix = prefix
		c.forward = append(c.forward, mappings...)
	}
}

// StripAttributeHeaders removes raw attribute headers from the request
// after extraction, so handlers behind the middleware never see spoofable
// values. prefix and sessionHeader mirror the header source configuration.
func StripAttributeHeaders(prefix, sessionHeader string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.strip = true
		c.stripPrefix = prefix
		c.stripSession = sessionHeader
	}
}

// MiddlewareLogger sets the logger for the middleware. Defaults to a
// no-op logger.
func MiddlewareLogger(logger *zap.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.logger = logger
	}
}

// Middleware wraps handlers with Shibboleth claims authentication for
// hosts that are not Caddy. Authenticated requests carry the identity in
// their context, retrievable with IdentityFromContext.
func Middleware(auth *Authenticator, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	var cfg middlewareConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	forward := prefixMappings(cfg.headerPrefix, cfg.forward)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := auth.Authenticate(r)

			if cfg.strip {
				stripped := headerattrs.StripUntrusted(r.Header, auth.Catalog(), cfg.stripPrefix, cfg.stripSession)
				if len(stripped) > 0 {
					logger.Debug("stripped attribute headers",
						zap.Strings("headers", stripped))
				}
			}

			// Forwarded claim headers are authoritative on every outcome.
			// Deleting the configured names up front means a client-supplied
			// value cannot reach the next handler when no session or no
			// matching claim overwrites it.
			for _, m := range forward {
				r.Header.Del(m.HeaderName)
			}

			if err != nil {
				writeAppError(w, logger, domain.UnexpectedError("unable to establish identity from session attributes", nil))
				return
			}

			switch result.Status {
			case domain.StatusNoResult:
				if cfg.requireSession {
					if cfg.loginURL == "" {
						http.Error(w, "Unauthorized: Shibboleth session required", http.StatusUnauthorized)
						return
					}
					redirectToSessionInitiator(w, r, cfg.loginURL)
					return
				}
				next.ServeHTTP(w, r)

			case domain.StatusSuccess:
				r = r.WithContext(WithIdentity(r.Context(), result.Identity))
				if len(cfg.forward) > 0 {
					headers, err := domain.MapClaimsToHeaders(result.Identity, forward)
					if err != nil {
						logger.Error("map claims to headers", zap.Error(err))
						writeAppError(w, logger, domain.ConfigError("claim header mapping is invalid"))
						return
					}
					for name, value := range headers {
						r.Header.Set(name, value)
					}
				}
				next.ServeHTTP(w, r)

			default:
				// A failure hook overrode the error with an explicit result.
				if location := result.Properties["redirect"]; location != "" {
					http.Redirect(w, r, location, http.StatusFound)
					return
				}
				writeAppError(w, logger, domain.UnexpectedError("authentication failed", nil))
			}
		})
	}
}

// prefixMappings returns the mappings with prefix applied to each header
// name.
func prefixMappings(prefix string, mappings []domain.ClaimHeaderMapping) []domain.ClaimHeaderMapping {
	if prefix == "" {
		return mappings
	}
	prefixed := make([]domain.ClaimHeaderMapping, len(mappings))
	for i, m := range mappings {
		m.HeaderName = ApplyHeaderPrefix(prefix, m.HeaderName)
		prefixed[i] = m
	}
	return prefixed
}

// writeAppError writes a JSON error response without exposing the cause.
func writeAppError(w http.ResponseWriter, logger *zap.Logger, appErr *domain.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code.HTTPStatus())
	if err := json.NewEncoder(w).Encode(domain.NewJSONErrorResponse(appErr)); err != nil {
		logger.Error("encode error response", zap.Error(err))
	}
}

// redirectToSessionInitiator sends the browser to the SP's login URL with
// the original URL as the target query parameter, the Shibboleth
// convention for session initiators.
func redirectToSessionInitiator(w http.ResponseWriter, r *http.Request, loginURL string) {
	redirectURL := loginURL
	if strings.Contains(redirectURL, "?") {
		redirectURL += "&"
	} else {
		redirectURL += "?"
	}
	redirectURL += "target=" + url.QueryEscape(validateReturnURL(r.URL.RequestURI()))
	http.Redirect(w, r, redirectURL, http.StatusFound)
}
