// Package caddyshibclaims provides a Caddy v2 handler that converts the
// attributes a Shibboleth SP publishes on requests into typed identity
// claims for upstream handlers.
package caddyshibclaims

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/attrmap"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/environattrs"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/headerattrs"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/metrics"
	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/rulefile"
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

const Version = "0.3.0"

func init() {
	caddy.RegisterModule(&ShibClaims{})
	httpcaddyfile.RegisterHandlerDirective("shib_claims", parseCaddyfile)
}

// ShibClaims is a Caddy HTTP handler module that detects a Shibboleth SP
// session, extracts the attributes the SP attached to the request and maps
// them onto identity claims.
type ShibClaims struct {
	// Configuration embedded directly
	Config

	// Runtime state (not serialized)
	authMu        sync.RWMutex
	authenticator *Authenticator

	ruleSource  ports.RuleSource
	ruleCloser  io.Closer
	sources     ports.SourceFactory
	sessions    ports.SessionDetector
	metrics     ports.MetricsRecorder
	baseCatalog domain.AttributeCatalog
	hooks       domain.Hooks
	logger      *zap.Logger
}

// SetAuthenticator sets the authenticator. For testing purposes.
func (s *ShibClaims) SetAuthenticator(a *Authenticator) {
	s.authMu.Lock()
	s.authenticator = a
	s.authMu.Unlock()
}

// SetHooks sets the lifecycle hooks applied when the pipeline is built.
// For testing purposes; must be called before Provision.
func (s *ShibClaims) SetHooks(h domain.Hooks) {
	s.hooks = h
}

// SetMetricsRecorder sets the metrics recorder. For testing purposes; must
// be called before Provision.
func (s *ShibClaims) SetMetricsRecorder(m ports.MetricsRecorder) {
	s.metrics = m
}

// CaddyModule returns the Caddy module information.
func (*ShibClaims) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.shib_claims",
		New: func() caddy.Module { return new(ShibClaims) },
	}
}

// Provision sets up the module.
func (s *ShibClaims) Provision(ctx caddy.Context) error {
	s.logger = ctx.Logger()
	s.logger.Debug("provisioning shibboleth claims handler")

	s.Config.SetDefaults()

	// Metrics recorder. Prometheus collectors register once per process,
	// so re-provisioning on config reload reuses the shared recorder.
	if s.metrics == nil {
		if s.MetricsEnabled {
			s.metrics = sharedPrometheusRecorder()
		} else {
			s.metrics = metrics.NewNoopMetricsRecorder()
		}
	}

	// Attribute source and session detector for the configured deployment
	switch s.Source {
	case SourceHeaders:
		s.sources = headerattrs.NewFactory(s.HeaderPrefix)
		s.sessions = headerattrs.NewDetector(s.SessionHeader, s.SessionCookiePrefix)
	case SourceEnviron:
		factory := environattrs.NewFactory(nil)
		s.sources = factory
		s.sessions = environattrs.NewDetector(s.SessionVariable, factory)
	case SourceFCGI:
		factory := environattrs.NewFCGIFactory()
		s.sources = factory
		s.sessions = environattrs.NewDetector(s.SessionVariable, factory)
	default:
		return fmt.Errorf("unknown attribute source %q", s.Source)
	}

	// Base catalog: inline declarations, then the SP attribute map
	for _, a := range s.Config.Attributes {
		s.baseCatalog = append(s.baseCatalog, domain.AttributeDescriptor{
			ID:          a.ID,
			DisplayName: a.DisplayName,
		})
	}
	if s.AttributeMapFile != "" {
		mapped, err := attrmap.ParseFile(s.AttributeMapFile)
		if err != nil {
			return fmt.Errorf("parse attribute map: %w", err)
		}
		s.baseCatalog = domain.MergeCatalogs(s.baseCatalog, mapped)
		s.logger.Info("attribute map loaded",
			zap.String("file", s.AttributeMapFile),
			zap.Int("attribute_count", len(mapped)))
	}

	// Claim rule source based on config
	switch {
	case s.RulesFile != "":
		opts := []rulefile.Option{rulefile.WithMetricsRecorder(s.metrics)}
		var src *rulefile.FileRuleSource
		if s.RulesReloadInterval != "0" {
			interval, err := parseDuration(s.RulesReloadInterval)
			if err != nil {
				return fmt.Errorf("parse rules reload interval: %w", err)
			}
			opts = append(opts, rulefile.WithReloadCallback(s.onRulesReloaded))
			src = rulefile.NewFileRuleSourceWithRefresh(s.RulesFile, interval, s.logger, opts...)
		} else {
			src = rulefile.NewFileRuleSource(s.RulesFile, s.logger, opts...)
		}
		if err := src.Load(); err != nil {
			return fmt.Errorf("load claim rules from %s: %w", s.RulesFile, err)
		}
		s.ruleSource = src
		s.ruleCloser = src
	case len(s.Config.Claims) > 0:
		actions := make(domain.ClaimActions, 0, len(s.Config.Claims))
		for i, r := range s.Config.Claims {
			action, err := domain.CompileRule(r.Attribute, r.Claim, r.Transform, r.Separator)
			if err != nil {
				return fmt.Errorf("compile claim rule %d: %w", i, err)
			}
			actions = append(actions, action)
		}
		src, err := rulefile.NewInMemoryRuleSource(s.baseCatalog, actions)
		if err != nil {
			return fmt.Errorf("configure claim rules: %w", err)
		}
		s.ruleSource = src
	default:
		src, err := rulefile.NewInMemoryRuleSource(
			domain.MergeCatalogs(s.baseCatalog, domain.DefaultAttributeCatalog()),
			domain.DefaultClaimActions(),
		)
		if err != nil {
			return fmt.Errorf("configure default claim rules: %w", err)
		}
		s.ruleSource = src
	}

	if err := s.refreshAuthenticator(); err != nil {
		return fmt.Errorf("build claims pipeline: %w", err)
	}

	// Log successful provisioning
	auth := s.currentAuthenticator()
	s.logger.Info("shibboleth claims handler provisioned",
		zap.String("issuer", s.Issuer),
		zap.String("source", s.Source),
		zap.String("mode", s.Mode),
		zap.Int("attribute_count", len(auth.Catalog())),
		zap.String("version", Version),
	)

	return nil
}

// Validate ensures the module's configuration is valid.
func (s *ShibClaims) Validate() error {
	return s.Config.Validate()
}

// Cleanup stops the background rules reloader when the config is unloaded.
func (s *ShibClaims) Cleanup() error {
	if s.ruleCloser != nil {
		return s.ruleCloser.Close()
	}
	return nil
}

// ServeHTTP implements caddyhttp.MiddlewareHandler.
func (s *ShibClaims) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	auth := s.currentAuthenticator()
	if auth == nil {
		s.renderAppError(w, domain.ConfigMissingError("claims handler is not provisioned"))
		return nil
	}

	result, err := auth.Authenticate(r)

	// Raw attribute headers never travel past this handler. Upstream only
	// sees the verified claim headers stamped below.
	if s.Source == SourceHeaders && s.stripEnabled() {
		stripped := headerattrs.StripUntrusted(r.Header, auth.Catalog(), s.HeaderPrefix, s.SessionHeader)
		if len(stripped) > 0 {
			s.getLogger().Debug("stripped attribute headers",
				zap.Strings("headers", stripped))
		}
	}

	// Forwarded claim headers are authoritative on every outcome. Deleting
	// the configured names up front means a client-supplied value cannot
	// reach the upstream when no session or no matching claim overwrites it.
	mappings := s.claimHeaderMappings()
	for _, m := range mappings {
		r.Header.Del(m.HeaderName)
	}

	if err != nil {
		// The cause is logged by the authenticator; the client gets a
		// generic response.
		s.renderAppError(w, domain.UnexpectedError("unable to establish identity from session attributes", nil))
		return nil
	}

	switch result.Status {
	case domain.StatusNoResult:
		if s.Mode == ModeRequire {
			s.redirectToLogin(w, r)
			return nil
		}
		return next.ServeHTTP(w, r)

	case domain.StatusSuccess:
		r = r.WithContext(WithIdentity(r.Context(), result.Identity))
		if len(s.ForwardClaims) > 0 {
			headers, err := domain.MapClaimsToHeaders(result.Identity, mappings)
			if err != nil {
				s.getLogger().Error("map claims to headers", zap.Error(err))
				s.renderAppError(w, domain.ConfigError("claim header mapping is invalid"))
				return nil
			}
			for name, value := range headers {
				r.Header.Set(name, value)
			}
		}
		return next.ServeHTTP(w, r)

	default:
		// A failure hook overrode the error with an explicit result.
		if location := result.Properties["redirect"]; location != "" {
			http.Redirect(w, r, location, http.StatusFound)
			return nil
		}
		s.renderAppError(w, domain.UnexpectedError("authentication failed", nil))
		return nil
	}
}

// redirectToLogin sends an unauthenticated request to the SP's session
// initiator. Without a LoginURL the handler responds 401.
func (s *ShibClaims) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if s.LoginURL == "" {
		http.Error(w, "Unauthorized: Shibboleth session required", http.StatusUnauthorized)
		return
	}
	redirectToSessionInitiator(w, r, s.LoginURL)
}

// renderAppError writes a JSON error response without exposing the cause.
func (s *ShibClaims) renderAppError(w http.ResponseWriter, err *domain.AppError) {
	writeAppError(w, s.getLogger(), err)
}

// currentAuthenticator returns the authenticator built from the most
// recently loaded rules.
func (s *ShibClaims) currentAuthenticator() *Authenticator {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.authenticator
}

// refreshAuthenticator builds a pipeline from the rule source's current
// rules and swaps it in atomically. Requests in flight keep the pipeline
// they started with.
func (s *ShibClaims) refreshAuthenticator() error {
	catalog, err := s.ruleSource.Catalog()
	if err != nil {
		return err
	}
	actions, err := s.ruleSource.ClaimActions()
	if err != nil {
		return err
	}
	catalog = domain.MergeCatalogs(s.baseCatalog, catalog)

	pipeline, err := domain.NewPipeline(catalog, actions, s.Issuer, s.hooks)
	if err != nil {
		return err
	}
	auth, err := NewAuthenticator(pipeline, s.sources, s.sessions,
		WithLogger(s.logger),
		WithMetricsRecorder(s.metrics))
	if err != nil {
		return err
	}

	s.authMu.Lock()
	s.authenticator = auth
	s.authMu.Unlock()
	return nil
}

// onRulesReloaded is called by the background reloader after each refresh
// attempt. Failed reloads keep the current pipeline.
func (s *ShibClaims) onRulesReloaded(reloadErr error) {
	if reloadErr != nil {
		return
	}
	if err := s.refreshAuthenticator(); err != nil {
		s.getLogger().Error("rebuild claims pipeline after rules reload", zap.Error(err))
	}
}

// claimHeaderMappings returns the forward mappings with the configured
// header prefix applied.
func (s *ShibClaims) claimHeaderMappings() []domain.ClaimHeaderMapping {
	if s.ClaimHeaderPrefix == "" {
		return s.ForwardClaims
	}
	mappings := make([]domain.ClaimHeaderMapping, len(s.ForwardClaims))
	for i, m := range s.ForwardClaims {
		m.HeaderName = ApplyHeaderPrefix(s.ClaimHeaderPrefix, m.HeaderName)
		mappings[i] = m
	}
	return mappings
}

func (s *ShibClaims) stripEnabled() bool {
	return s.StripHeaders == nil || *s.StripHeaders
}

// getLogger returns the logger, or a no-op logger if not provisioned.
func (s *ShibClaims) getLogger() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

var (
	prometheusOnce     sync.Once
	prometheusRecorder *metrics.PrometheusMetricsRecorder
)

// sharedPrometheusRecorder returns the process-wide Prometheus recorder.
// Collectors can only be registered once per process, while Caddy
// re-provisions handlers on every config reload.
func sharedPrometheusRecorder() *metrics.PrometheusMetricsRecorder {
	prometheusOnce.Do(func() {
		prometheusRecorder = metrics.NewPrometheusMetricsRecorder()
	})
	return prometheusRecorder
}

// parseDuration parses a duration string, additionally accepting a day
// suffix such as "30d" which time.ParseDuration does not support.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, fmt.Errorf("invalid day format: %s", s)
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// validateReturnURL ensures the post-login return target is a safe
// relative path. Returns "/" for any invalid, absolute, or potentially
// dangerous URLs. This prevents open redirect vulnerabilities.
func validateReturnURL(target string) string {
	// Empty or whitespace-only defaults to root
	target = strings.TrimSpace(target)
	if target == "" {
		return "/"
	}

	// Must start with single forward slash (relative path)
	// Reject protocol-relative URLs (//evil.com)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}

	// Parse to detect schemes and other tricks
	parsed, err := url.Parse(target)
	if err != nil {
		return "/"
	}

	// Reject if it has a scheme (http:, javascript:, data:, etc.)
	if parsed.Scheme != "" {
		return "/"
	}

	// Reject if it has a host (shouldn't happen with leading / but be safe)
	if parsed.Host != "" {
		return "/"
	}

	// Reject paths with newlines (header injection)
	if strings.ContainsAny(target, "\r\n") {
		return "/"
	}

	// Check for encoded characters that could bypass validation
	// Decode and re-check for protocol-relative URLs
	decoded, err := url.QueryUnescape(target)
	if err != nil {
		return "/"
	}
	if strings.HasPrefix(decoded, "//") {
		return "/"
	}

	return target
}

// Interface guards
var (
	_ caddy.Module                = (*ShibClaims)(nil)
	_ caddy.Provisioner           = (*ShibClaims)(nil)
	_ caddy.Validator             = (*ShibClaims)(nil)
	_ caddy.CleanerUpper          = (*ShibClaims)(nil)
	_ caddyhttp.MiddlewareHandler = (*ShibClaims)(nil)
	_ caddyfile.Unmarshaler       = (*ShibClaims)(nil)
)
