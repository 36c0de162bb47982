package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveStatus(2 * time.Second)
	m.ObserveError("timeout", 10*time.Second)
	m.ObserveError("timeout", 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesTotal.WithLabelValues(OutcomeStatus)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.QueriesTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.QueryDuration))
}

func TestMetrics_PoolGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetPool(3, 1, 2)
	m.SetBreakerOpen(true)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.PoolVacancy))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PoolIdleSessions))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PendingQueries))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerOpen))

	m.SetBreakerOpen(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.BreakerOpen))
}

func TestMetrics_HTTPCodesAreBucketed(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementHTTPRequests("/v1/status", http.StatusOK)
	m.IncrementHTTPRequests("/v1/status", http.StatusTooManyRequests)
	m.IncrementHTTPRequests("/v1/status", http.StatusNotFound)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/status", "2xx")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/status", "4xx")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStatus(time.Second)
		m.SetPool(1, 1, 1)
		m.IncrementSessionsCreated()
		m.IncrementCacheHits()
		m.IncrementHTTPRequests("/ping", http.StatusOK)
	})
}
