package caddyshibclaims

import (
	"github.com/philiph/caddy-shib-claims/internal/core/domain"
	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// NewShibClaimsForTest creates a ShibClaims instance with injected
// dependencies, bypassing Provision. This constructor is intended for
// testing purposes only.
func NewShibClaimsForTest(
	config Config,
	ruleSource ports.RuleSource,
	sources ports.SourceFactory,
	sessions ports.SessionDetector,
) *ShibClaims {
	config.SetDefaults()

	s := &ShibClaims{
		Config:     config,
		ruleSource: ruleSource,
		sources:    sources,
		sessions:   sessions,
	}

	catalog, err := ruleSource.Catalog()
	if err != nil {
		panic("rule source has no catalog: " + err.Error())
	}
	actions, err := ruleSource.ClaimActions()
	if err != nil {
		panic("rule source has no claim actions: " + err.Error())
	}

	pipeline, err := domain.NewPipeline(catalog, actions, s.Issuer, domain.Hooks{})
	if err != nil {
		// Defaults make an empty issuer impossible here
		panic("failed to build claims pipeline: " + err.Error())
	}
	auth, err := NewAuthenticator(pipeline, sources, sessions)
	if err != nil {
		panic("failed to build authenticator: " + err.Error())
	}
	s.SetAuthenticator(auth)
	return s
}
