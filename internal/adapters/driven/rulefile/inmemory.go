package rulefile

import (
	"context"
	"sync"

	"github.com/philiph/caddy-shib-claims/internal/core/domain"
	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// InMemoryRuleSource is an in-memory implementation of RuleSource.
// Suitable for testing and for deployments that configure rules inline.
type InMemoryRuleSource struct {
	mu      sync.RWMutex
	catalog domain.AttributeCatalog
	actions domain.ClaimActions
}

// NewInMemoryRuleSource creates an in-memory rule source from an explicit
// catalog and action list. The actions are validated; the catalog is
// deduplicated and extended to cover every attribute the actions consume.
func NewInMemoryRuleSource(catalog domain.AttributeCatalog, actions domain.ClaimActions) (*InMemoryRuleSource, error) {
	s := &InMemoryRuleSource{}
	if err := s.Replace(catalog, actions); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDefaultRuleSource creates an in-memory rule source carrying the
// default attribute catalog and claim rules.
func NewDefaultRuleSource() *InMemoryRuleSource {
	s, err := NewInMemoryRuleSource(domain.DefaultAttributeCatalog(), domain.DefaultClaimActions())
	if err != nil {
		// Default rules are statically valid.
		panic(err)
	}
	return s
}

// Replace swaps in a new catalog and action list after validating them.
// This is a test helper method - production adapters load from files.
func (s *InMemoryRuleSource) Replace(catalog domain.AttributeCatalog, actions domain.ClaimActions) error {
	if err := actions.Validate(); err != nil {
		return err
	}

	merged := make(domain.AttributeCatalog, len(catalog))
	copy(merged, catalog)
	for _, id := range actions.AttributeIDs() {
		if !merged.Contains(id) {
			merged = append(merged, domain.AttributeDescriptor{ID: id})
		}
	}

	s.mu.Lock()
	s.catalog = merged.Dedupe()
	s.actions = actions
	s.mu.Unlock()

	return nil
}

// Catalog returns the attribute catalog.
func (s *InMemoryRuleSource) Catalog() (domain.AttributeCatalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.AttributeCatalog, len(s.catalog))
	copy(out, s.catalog)
	return out, nil
}

// ClaimActions returns the claim actions, in declaration order.
func (s *InMemoryRuleSource) ClaimActions() (domain.ClaimActions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.ClaimActions, len(s.actions))
	copy(out, s.actions)
	return out, nil
}

// Refresh is a no-op for in-memory sources.
func (s *InMemoryRuleSource) Refresh(ctx context.Context) error {
	return nil
}

// Ensure InMemoryRuleSource implements ports.RuleSource
var _ ports.RuleSource = (*InMemoryRuleSource)(nil)
