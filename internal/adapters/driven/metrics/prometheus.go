package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/philiph/caddy-shib-claims/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	authOutcomesTotal      *prometheus.CounterVec
	claimsBuiltTotal       prometheus.Counter
	claimsPerIdentity      prometheus.Histogram
	extractDurationSeconds prometheus.Histogram
	rulesReloadsTotal      *prometheus.CounterVec
	rulesLoaded            prometheus.Gauge
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics recorder
// with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	authOutcomesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shib_claims_auth_outcomes_total",
		Help: "Total authentication attempts by terminal outcome",
	}, []string{"outcome"})

	claimsBuiltTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shib_claims_claims_built_total",
		Help: "Total claims emitted across all identities",
	})

	claimsPerIdentity := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shib_claims_claims_per_identity",
		Help:    "Number of claims carried by each built identity",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	extractDurationSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shib_claims_extract_duration_seconds",
		Help:    "Time spent extracting attributes and building claims",
		Buckets: prometheus.DefBuckets,
	})

	rulesReloadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shib_claims_rules_reloads_total",
		Help: "Total claim rules reload attempts",
	}, []string{"result"})

	rulesLoaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shib_claims_rules_loaded",
		Help: "Current number of loaded claim rules",
	})

	reg.MustRegister(
		authOutcomesTotal,
		claimsBuiltTotal,
		claimsPerIdentity,
		extractDurationSeconds,
		rulesReloadsTotal,
		rulesLoaded,
	)

	return &PrometheusMetricsRecorder{
		authOutcomesTotal:      authOutcomesTotal,
		claimsBuiltTotal:       claimsBuiltTotal,
		claimsPerIdentity:      claimsPerIdentity,
		extractDurationSeconds: extractDurationSeconds,
		rulesReloadsTotal:      rulesReloadsTotal,
		rulesLoaded:            rulesLoaded,
	}
}

// RecordAuthOutcome records the terminal state of one authentication attempt.
func (p *PrometheusMetricsRecorder) RecordAuthOutcome(outcome string) {
	p.authOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordClaimsBuilt records how many claims one identity carried.
func (p *PrometheusMetricsRecorder) RecordClaimsBuilt(count int) {
	p.claimsBuiltTotal.Add(float64(count))
	p.claimsPerIdentity.Observe(float64(count))
}

// RecordExtractDuration records extraction plus claims building latency.
func (p *PrometheusMetricsRecorder) RecordExtractDuration(seconds float64) {
	p.extractDurationSeconds.Observe(seconds)
}

// RecordRulesReload records a claim rules reload attempt.
func (p *PrometheusMetricsRecorder) RecordRulesReload(success bool, ruleCount int) {
	result := "failure"
	if success {
		result = "success"
	}
	p.rulesReloadsTotal.WithLabelValues(result).Inc()
	if success {
		p.rulesLoaded.Set(float64(ruleCount))
	}
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
