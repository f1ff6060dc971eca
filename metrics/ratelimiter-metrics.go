// Package metrics exposes Prometheus collectors for rate limiter decisions and store maintenance.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeAllowed  = "allowed"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// RateLimitMetrics records per-limiter request outcomes and compaction activity.
// A nil *RateLimitMetrics is valid and records nothing.
type RateLimitMetrics struct {
	requests           *prometheus.CounterVec
	trackedKeys        *prometheus.GaugeVec
	compactions        *prometheus.CounterVec
	evictedKeys        *prometheus.CounterVec
	compactionDuration *prometheus.HistogramVec
}

// NewRateLimitMetrics creates the collectors and registers them on reg.
func NewRateLimitMetrics(reg prometheus.Registerer) (*RateLimitMetrics, error) {
	m := &RateLimitMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratelimiter",
			Name:      "requests_total",
			Help:      "Requests evaluated by a rate limiter, by outcome.",
		}, []string{"limiter", "outcome"}),
		trackedKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ratelimiter",
			Name:      "tracked_keys",
			Help:      "Keys holding request history after the last compaction.",
		}, []string{"limiter"}),
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratelimiter",
			Name:      "compactions_total",
			Help:      "Completed compaction cycles.",
		}, []string{"limiter"}),
		evictedKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratelimiter",
			Name:      "compaction_evicted_keys_total",
			Help:      "Keys removed by compaction because all their history expired.",
		}, []string{"limiter"}),
		compactionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ratelimiter",
			Name:      "compaction_duration_seconds",
			Help:      "Time spent holding the store during compaction.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"limiter"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.trackedKeys, m.compactions, m.evictedKeys, m.compactionDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register rate limiter metrics: %w", err)
		}
	}
	return m, nil
}

// RecordRequest records the outcome of an admission decision.
func (m *RateLimitMetrics) RecordRequest(limiterKey string, allowed bool) {
	if m == nil {
		return
	}
	outcome := OutcomeRejected
	if allowed {
		outcome = OutcomeAllowed
	}
	m.requests.WithLabelValues(limiterKey, outcome).Inc()
}

// RecordError records a request that could not be evaluated.
func (m *RateLimitMetrics) RecordError(limiterKey string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(limiterKey, OutcomeError).Inc()
}

// ObserveCompaction implements types.CompactionObserver.
func (m *RateLimitMetrics) ObserveCompaction(limiterKey string, evictedKeys, trackedKeys int, took time.Duration) {
	if m == nil {
		return
	}
	m.compactions.WithLabelValues(limiterKey).Inc()
	m.evictedKeys.WithLabelValues(limiterKey).Add(float64(evictedKeys))
	m.trackedKeys.WithLabelValues(limiterKey).Set(float64(trackedKeys))
	m.compactionDuration.WithLabelValues(limiterKey).Observe(took.Seconds())
}
