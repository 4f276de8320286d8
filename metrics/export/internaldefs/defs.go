package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one session counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one session histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricBootstrap, Name: "session_bootstrap_total", Help: "Completed session bootstraps."},
	{ID: goSession.MetricBootstrapDegraded, Name: "session_bootstrap_degraded_total", Help: "Bootstraps that started unauthenticated because storage failed."},
	{ID: goSession.MetricLoginSuccess, Name: "session_login_success_total", Help: "Credentials accepted by login."},
	{ID: goSession.MetricLoginRejected, Name: "session_login_rejected_total", Help: "Malformed or expired credentials rejected by login."},
	{ID: goSession.MetricLogout, Name: "session_logout_total", Help: "Explicit logouts."},
	{ID: goSession.MetricForcedLogout, Name: "session_forced_logout_total", Help: "Sessions ended by a server-declared failure."},
	{ID: goSession.MetricSessionExpired, Name: "session_expired_total", Help: "Sessions ended by the expiry timer."},
	{ID: goSession.MetricStorageFailure, Name: "session_storage_failure_total", Help: "Failed credential storage operations."},
	{ID: goSession.MetricCredentialAttached, Name: "session_credential_attached_total", Help: "Outgoing requests that carried the credential."},
	{ID: goSession.MetricCredentialMissing, Name: "session_credential_missing_total", Help: "Outgoing requests sent without a credential."},
	{ID: goSession.MetricSessionInvalidResponse, Name: "session_invalid_response_total", Help: "Responses classified as session invalid."},
	{ID: goSession.MetricBusinessDenied, Name: "session_business_denied_total", Help: "403 responses classified as business denials."},
	{ID: goSession.MetricTerminationDeduplicated, Name: "session_termination_deduplicated_total", Help: "Session failures that joined an existing termination."},
	{ID: goSession.MetricCacheHit, Name: "session_cache_hit_total", Help: "GET requests served from the response cache."},
	{ID: goSession.MetricCacheMiss, Name: "session_cache_miss_total", Help: "GET requests that missed the response cache."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricTerminationLatency, Name: "session_termination_latency_seconds", Help: "Time spent ending a session."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the core
// latency buckets.
var HistogramBounds = []string{
	"0.001",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for metric names.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
