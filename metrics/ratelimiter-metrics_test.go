package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learn.slidingwindow/metrics"
	"learn.slidingwindow/types"
)

var _ types.CompactionObserver = (*metrics.RateLimitMetrics)(nil)

func TestRateLimitMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewRateLimitMetrics(reg)
	require.NoError(t, err)

	m.RecordRequest("api", true)
	m.RecordRequest("api", true)
	m.RecordRequest("api", false)
	m.RecordError("login")
	m.ObserveCompaction("api", 3, 7, 2*time.Millisecond)
	m.ObserveCompaction("api", 1, 6, time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "ratelimiter_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	expected := `
# HELP ratelimiter_requests_total Requests evaluated by a rate limiter, by outcome.
# TYPE ratelimiter_requests_total counter
ratelimiter_requests_total{limiter="api",outcome="allowed"} 2
ratelimiter_requests_total{limiter="api",outcome="rejected"} 1
ratelimiter_requests_total{limiter="login",outcome="error"} 1
# HELP ratelimiter_compactions_total Completed compaction cycles.
# TYPE ratelimiter_compactions_total counter
ratelimiter_compactions_total{limiter="api"} 2
# HELP ratelimiter_compaction_evicted_keys_total Keys removed by compaction because all their history expired.
# TYPE ratelimiter_compaction_evicted_keys_total counter
ratelimiter_compaction_evicted_keys_total{limiter="api"} 4
# HELP ratelimiter_tracked_keys Keys holding request history after the last compaction.
# TYPE ratelimiter_tracked_keys gauge
ratelimiter_tracked_keys{limiter="api"} 6
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"ratelimiter_requests_total",
		"ratelimiter_compactions_total",
		"ratelimiter_compaction_evicted_keys_total",
		"ratelimiter_tracked_keys",
	)
	assert.NoError(t, err)
}

func TestRateLimitMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewRateLimitMetrics(reg)
	require.NoError(t, err)

	_, err = metrics.NewRateLimitMetrics(reg)
	assert.Error(t, err)
}

func TestRateLimitMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.RateLimitMetrics
	assert.NotPanics(t, func() {
		m.RecordRequest("api", true)
		m.RecordError("api")
		m.ObserveCompaction("api", 1, 1, time.Millisecond)
	})
}
