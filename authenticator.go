package caddyshibclaims

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/caddy-shib-claims/internal/adapters/driven/metrics"
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// Outcome labels recorded on the auth outcome metric.
const (
	outcomeSuccess   = "success"
	outcomeNoSession = "no_session"
	outcomeFailure   = "failure"
	outcomeOverride  = "override"
)

// Authenticator runs the claim mapping pipeline against incoming requests.
// It binds the request-agnostic pipeline to one deployment's attribute
// source and session detector, and records outcome metrics. Safe for
// concurrent use.
type Authenticator struct {
	pipeline *domain.Pipeline
	sources  ports.SourceFactory
	sessions ports.SessionDetector
	metrics  ports.MetricsRecorder
	logger   *zap.Logger
}

// AuthenticatorOption configures optional collaborators on an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithMetricsRecorder sets the metrics recorder. Defaults to a no-op
// recorder.
func WithMetricsRecorder(m ports.MetricsRecorder) AuthenticatorOption {
	return func(a *Authenticator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// NewAuthenticator creates an Authenticator from a pipeline, an attribute
// source factory and a session detector. All three are required.
func NewAuthenticator(pipeline *domain.Pipeline, sources ports.SourceFactory, sessions ports.SessionDetector, opts ...AuthenticatorOption) (*Authenticator, error) {
	if pipeline == nil {
		return nil, domain.ConfigMissingError("pipeline is required")
	}
	if sources == nil {
		return nil, domain.ConfigMissingError("attribute source factory is required")
	}
	if sessions == nil {
		return nil, domain.ConfigMissingError("session detector is required")
	}

	a := &Authenticator{
		pipeline: pipeline,
		sources:  sources,
		sessions: sessions,
		metrics:  metrics.NewNoopMetricsRecorder(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// SessionPresent reports whether the request carries an active SP session.
func (a *Authenticator) SessionPresent(r *http.Request) bool {
	return a.sessions.SessionPresent(r)
}

// AttributesFromRequest extracts raw catalog attributes from the request
// without building claims. Useful for diagnostics.
func (a *Authenticator) AttributesFromRequest(r *http.Request) domain.AttributeValues {
	return a.pipeline.Extract(a.sources.AttributesForRequest(r))
}

// ClaimsPrincipal extracts attributes and builds an identity without
// consulting the session detector. Callers that need the full state
// machine, including the no-session result and failure hooks, use
// Authenticate instead.
func (a *Authenticator) ClaimsPrincipal(r *http.Request) (*domain.Identity, error) {
	return a.pipeline.Principal(a.sources.AttributesForRequest(r))
}

// Authenticate runs the full state machine for one request: session
// detection, attribute extraction and claims building. When no session is
// present it returns a no-result outcome and a nil error. A non-nil error
// means claims building failed and no hook overrode the failure.
func (a *Authenticator) Authenticate(r *http.Request) (domain.Result, error) {
	sessionPresent := a.sessions.SessionPresent(r)

	var src domain.AttributeGetter
	if sessionPresent {
		src = a.sources.AttributesForRequest(r)
	}

	start := time.Now()
	result, err := a.pipeline.Authenticate(sessionPresent, src)
	if sessionPresent {
		a.metrics.RecordExtractDuration(time.Since(start).Seconds())
	}

	if err != nil {
		a.metrics.RecordAuthOutcome(outcomeFailure)
		a.getLogger().Warn("claims authentication failed",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return result, err
	}

	switch {
	case result.Overridden:
		// A failure hook replaced the error with an explicit result. The
		// override may carry any status, so this is checked before them.
		a.metrics.RecordAuthOutcome(outcomeOverride)
		a.getLogger().Info("claims failure overridden by hook",
			zap.Stringer("status", result.Status),
			zap.Error(result.Err))
	case result.Status == domain.StatusNoResult:
		a.metrics.RecordAuthOutcome(outcomeNoSession)
	case result.Status == domain.StatusSuccess:
		a.metrics.RecordAuthOutcome(outcomeSuccess)
		if result.Identity != nil {
			a.metrics.RecordClaimsBuilt(len(result.Identity.Claims))
			a.getLogger().Debug("claims identity built",
				zap.String("subject", result.Identity.Name()),
				zap.Int("claim_count", len(result.Identity.Claims)))
		}
	}

	return result, nil
}

// Catalog returns the attribute catalog the pipeline extracts.
func (a *Authenticator) Catalog() domain.AttributeCatalog {
	return a.pipeline.Catalog()
}

// Issuer returns the issuer label recorded on built identities.
func (a *Authenticator) Issuer() string {
	return a.pipeline.Issuer()
}

// getLogger returns the configured logger or a no-op logger.
func (a *Authenticator) getLogger() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}
