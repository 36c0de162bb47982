// Package metrics exposes Prometheus collectors for the document checker.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docstatus"

// Outcome labels for completed queries.
const (
	OutcomeStatus = "status"
)

type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	QueryDuration     prometheus.Histogram
	PoolVacancy       prometheus.Gauge
	PoolIdleSessions  prometheus.Gauge
	PendingQueries    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDiscarded prometheus.Counter
	BreakerOpen       prometheus.Gauge
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheEvictions    prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Completed status queries by outcome",
		}, []string{"outcome"}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time from query dispatch to resolution in the browser provider",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 6, 8, 10, 15},
		}),
		PoolVacancy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_vacancy",
			Help:      "Number of browser sessions that may still be acquired",
		}),
		PoolIdleSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_idle_sessions",
			Help:      "Number of warm browser sessions waiting for work",
		}),
		PendingQueries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_queries",
			Help:      "Queries awaiting a result from the checker page",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Browser sessions opened on the checker page",
		}),
		SessionsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_discarded_total",
			Help:      "Browser sessions dropped because they became unusable",
		}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_breaker_open",
			Help:      "1 while session creation is short-circuited",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Queries answered from the status cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Queries forwarded past the status cache",
		}),
		CacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Status cache entries removed",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) ObserveStatus(elapsed time.Duration) {
	m.observe(OutcomeStatus, elapsed)
}

// ObserveError records a failed query under the error kind name.
func (m *Metrics) ObserveError(kind string, elapsed time.Duration) {
	m.observe(kind, elapsed)
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.QueryDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SetPool(vacancy, idle, pending int) {
	if m == nil {
		return
	}
	m.PoolVacancy.Set(float64(vacancy))
	m.PoolIdleSessions.Set(float64(idle))
	m.PendingQueries.Set(float64(pending))
}

func (m *Metrics) IncrementSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncrementSessionsDiscarded() {
	if m == nil {
		return
	}
	m.SessionsDiscarded.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) IncrementCacheHits() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementCacheMisses() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) IncrementCacheEvictions() {
	if m == nil {
		return
	}
	m.CacheEvictions.Inc()
}

func (m *Metrics) IncrementHTTPRequests(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
