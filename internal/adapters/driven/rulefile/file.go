// Package rulefile loads attribute catalogs and claim rules from local
// JSON or YAML files, with optional periodic reload.
package rulefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/philiph/caddy-shib-claims/internal/core/domain"
	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// RulesFile represents the structure of a claim rules file.
type RulesFile struct {
	Attributes []AttributeEntry `json:"attributes" yaml:"attributes"`
	Rules      []RuleEntry      `json:"rules" yaml:"rules"`
}

// AttributeEntry declares one catalog attribute.
type AttributeEntry struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// RuleEntry declares one attribute-to-claim rule.
type RuleEntry struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Claim     string `json:"claim" yaml:"claim"`
	Transform string `json:"transform" yaml:"transform"`
	Separator string `json:"separator" yaml:"separator"`
}

// Option configures optional FileRuleSource behavior.
type Option func(*options)

type options struct {
	metricsRecorder ports.MetricsRecorder
	onReload        func(error) // callback after background reload (for testing)
}

// WithMetricsRecorder wires reload outcomes into a metrics recorder.
func WithMetricsRecorder(m ports.MetricsRecorder) Option {
	return func(o *options) { o.metricsRecorder = m }
}

// WithReloadCallback registers a callback invoked after every background
// reload attempt with the reload error, nil on success.
func WithReloadCallback(f func(error)) Option {
	return func(o *options) { o.onReload = f }
}

// FileRuleSource loads claim rules from a local JSON or YAML file.
// A failed reload preserves the previously loaded rules.
type FileRuleSource struct {
	path            string
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
	onReload        func(error)

	mu      sync.RWMutex
	loaded  bool
	catalog domain.AttributeCatalog
	actions domain.ClaimActions

	// Background reload goroutine management
	stopCh chan struct{}
	closed bool
}

// NewFileRuleSource creates a file-backed rule source with passive reload:
// rules are read only when Load or Refresh is called.
func NewFileRuleSource(path string, logger *zap.Logger, opts ...Option) *FileRuleSource {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &FileRuleSource{
		path:            path,
		logger:          logger,
		metricsRecorder: o.metricsRecorder,
		onReload:        o.onReload,
	}
}

// NewFileRuleSourceWithRefresh creates a file-backed rule source that
// re-reads the file every reloadInterval. Call Close() to stop the
// background goroutine.
func NewFileRuleSourceWithRefresh(path string, reloadInterval time.Duration, logger *zap.Logger, opts ...Option) *FileRuleSource {
	s := NewFileRuleSource(path, logger, opts...)
	s.stopCh = make(chan struct{})
	go s.reloadLoop(reloadInterval)
	return s
}

// reloadLoop runs periodic rule reload in the background.
func (s *FileRuleSource) reloadLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := s.Refresh(context.Background())
			if s.logger != nil {
				if err != nil {
					s.logger.Warn("background rules reload failed",
						zap.String("path", s.path),
						zap.Error(err))
				} else {
					s.mu.RLock()
					ruleCount := len(s.actions)
					s.mu.RUnlock()
					s.logger.Info("background rules reload succeeded",
						zap.String("path", s.path),
						zap.Int("rule_count", ruleCount))
				}
			}
			if s.onReload != nil {
				s.onReload(err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the background reload goroutine if running.
// Safe to call multiple times (idempotent).
// Safe to call on sources created without background reload.
func (s *FileRuleSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil && !s.closed {
		close(s.stopCh)
		s.closed = true
	}
	return nil
}

// Load reads and compiles the rules file.
// This should be called during initialization.
func (s *FileRuleSource) Load() error {
	return s.Refresh(context.Background())
}

// Catalog returns the attribute catalog declared by the file.
func (s *FileRuleSource) Catalog() (domain.AttributeCatalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, domain.RulesError("claim rules not loaded", nil)
	}
	out := make(domain.AttributeCatalog, len(s.catalog))
	copy(out, s.catalog)
	return out, nil
}

// ClaimActions returns the compiled claim actions, in declaration order.
func (s *FileRuleSource) ClaimActions() (domain.ClaimActions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, domain.RulesError("claim rules not loaded", nil)
	}
	out := make(domain.ClaimActions, len(s.actions))
	copy(out, s.actions)
	return out, nil
}

// Refresh reloads rules from the file. On failure the previously loaded
// rules are preserved and the error is returned for logging/monitoring.
func (s *FileRuleSource) Refresh(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		refreshErr := fmt.Errorf("read rules file: %w", err)
		s.markReloadFailed()
		return refreshErr
	}

	var file RulesFile
	ext := strings.ToLower(filepath.Ext(s.path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &file); err != nil {
			s.markReloadFailed()
			return fmt.Errorf("parse YAML rules file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &file); err != nil {
			s.markReloadFailed()
			return fmt.Errorf("parse JSON rules file: %w", err)
		}
	}

	catalog, actions, err := Compile(file)
	if err != nil {
		s.markReloadFailed()
		return err
	}

	// Atomic update
	s.mu.Lock()
	s.loaded = true
	s.catalog = catalog
	s.actions = actions
	s.mu.Unlock()

	if s.metricsRecorder != nil {
		s.metricsRecorder.RecordRulesReload(true, len(actions))
	}

	return nil
}

// markReloadFailed records a failed reload, preserving existing rules.
func (s *FileRuleSource) markReloadFailed() {
	if s.metricsRecorder != nil {
		s.metricsRecorder.RecordRulesReload(false, 0)
	}
	// catalog, actions are preserved - serve stale rules
}

// Compile validates a rules file and builds the catalog and actions it
// declares. Rules referencing attributes absent from the attributes section
// extend the catalog with ID-only descriptors, so the catalog always covers
// the rule set.
//
// This is a pure function with no side effects or I/O.
func Compile(file RulesFile) (domain.AttributeCatalog, domain.ClaimActions, error) {
	if len(file.Rules) == 0 {
		return nil, nil, fmt.Errorf("rules file declares no rules")
	}

	catalog := make(domain.AttributeCatalog, 0, len(file.Attributes))
	for i, e := range file.Attributes {
		if e.ID == "" {
			return nil, nil, fmt.Errorf("attribute entry %d: id is required", i)
		}
		catalog = append(catalog, domain.AttributeDescriptor{
			ID:          e.ID,
			DisplayName: e.DisplayName,
		})
	}

	actions := make(domain.ClaimActions, 0, len(file.Rules))
	for i, r := range file.Rules {
		action, err := domain.CompileRule(r.Attribute, r.Claim, r.Transform, r.Separator)
		if err != nil {
			return nil, nil, fmt.Errorf("rule %d: %w", i, err)
		}
		actions = append(actions, action)
	}

	for _, id := range actions.AttributeIDs() {
		if !catalog.Contains(id) {
			catalog = append(catalog, domain.AttributeDescriptor{ID: id})
		}
	}

	return catalog.Dedupe(), actions, nil
}

// Ensure FileRuleSource implements ports.RuleSource
var _ ports.RuleSource = (*FileRuleSource)(nil)
