package metrics

import (
	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordAuthOutcome is a no-op.
func (n *NoopMetricsRecorder) RecordAuthOutcome(outcome string) {}

// RecordClaimsBuilt is a no-op.
func (n *NoopMetricsRecorder) RecordClaimsBuilt(count int) {}

// RecordExtractDuration is a no-op.
func (n *NoopMetricsRecorder) RecordExtractDuration(seconds float64) {}

// RecordRulesReload is a no-op.
func (n *NoopMetricsRecorder) RecordRulesReload(success bool, ruleCount int) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
