package ports

import (
	"context"

	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// RuleSource is the port interface for external claim rule configuration:
// an attribute catalog plus the actions that map those attributes to
// claims. Implementations load from files or memory and must be safe for
// concurrent use.
type RuleSource interface {
	// Catalog returns the attribute catalog declared by the source.
	Catalog() (domain.AttributeCatalog, error)

	// ClaimActions returns the compiled claim actions, in declaration order.
	ClaimActions() (domain.ClaimActions, error)

	// Refresh reloads rules from the underlying source.
	Refresh(ctx context.Context) error
}
