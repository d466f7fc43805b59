package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordAuthOutcome records the terminal state of one authentication
	// attempt: "success", "no_session", "failure", or "override".
	RecordAuthOutcome(outcome string)

	// RecordClaimsBuilt records how many claims one identity carried.
	RecordClaimsBuilt(count int)

	// RecordExtractDuration records how long extraction plus claims
	// building took, in seconds.
	RecordExtractDuration(seconds float64)

	// RecordRulesReload records a claim rules reload attempt and the number
	// of rules now loaded.
	RecordRulesReload(success bool, ruleCount int)
}
