package goSession

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/transport"
)

// MetricID identifies one session counter.
type MetricID uint16

const (
	MetricBootstrap MetricID = iota
	MetricBootstrapDegraded
	MetricLoginSuccess
	MetricLoginRejected
	MetricLogout
	MetricForcedLogout
	MetricSessionExpired
	MetricStorageFailure
	MetricCredentialAttached
	MetricCredentialMissing
	MetricSessionInvalidResponse
	MetricBusinessDenied
	MetricTerminationDeduplicated
	MetricCacheHit
	MetricCacheMiss
	// MetricTerminationLatency is the only histogram: time spent clearing
	// storage and transitioning on logout, forced logout and expiry.
	MetricTerminationLatency
	metricIDCount
)

// MetricCount is the number of defined metric IDs.
const MetricCount = int(metricIDCount)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a set of lock-free counters. A nil or disabled *Metrics
// ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only
// [MetricTerminationLatency] has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricTerminationLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricTerminationLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricTerminationLatency].buckets[i])
		}
		s.Histograms[MetricTerminationLatency] = buckets
	}
	return s
}

// Upper bounds of the latency buckets; the last bucket is unbounded.
var latencyBounds = [histBucketCount - 1]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}

// transportObserver feeds transport events into Metrics.
type transportObserver struct {
	metrics *Metrics
}

var _ transport.Observer = transportObserver{}

func (o transportObserver) CredentialAttached(attached bool) {
	if attached {
		o.metrics.Inc(MetricCredentialAttached)
		return
	}
	o.metrics.Inc(MetricCredentialMissing)
}

func (o transportObserver) ResponseClassified(class transport.Class) {
	switch class {
	case transport.ClassSessionInvalid:
		o.metrics.Inc(MetricSessionInvalidResponse)
	case transport.ClassBusinessDenied:
		o.metrics.Inc(MetricBusinessDenied)
	}
}

func (o transportObserver) TerminationDeduplicated() {
	o.metrics.Inc(MetricTerminationDeduplicated)
}

func (o transportObserver) CacheLookup(hit bool) {
	if hit {
		o.metrics.Inc(MetricCacheHit)
		return
	}
	o.metrics.Inc(MetricCacheMiss)
}
