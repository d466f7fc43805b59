package caddyshibclaims

import (
	"context"

	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// identityContextKey is the context key for the authenticated identity.
type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity stored by the handler, if any.
// Downstream handlers use this to read the authenticated user's claims.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*domain.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
