// Package cache puts a TTL result cache in front of a StatusProvider.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"k8s.io/utils/clock"

	"docstatus/internal/checker/metrics"
	"docstatus/internal/checker/models"
	"docstatus/internal/checker/ports"
)

const (
	DefaultTTL           = 4 * time.Hour
	DefaultSweepInterval = 30 * time.Minute
)

type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Middleware answers repeated lookups from memory and records fresh
// statuses on their way down to the sink. Errors are never cached.
type Middleware struct {
	next    ports.StatusProvider
	entries *ttlcache.Cache[string, models.DocumentStatus]
	logger  *slog.Logger
	metrics *metrics.Metrics

	sinkMu sync.RWMutex
	sink   ports.ResultSink

	stop      chan struct{}
	sweepDone chan struct{}

	disposeOnce sync.Once
	disposeErr  error
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.WithTicker
	sink    ports.ResultSink
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock drives the sweep ticker.
func WithClock(c clock.WithTicker) Option {
	return func(o *options) { o.clock = c }
}

func WithResultSink(sink ports.ResultSink) Option {
	return func(o *options) { o.sink = sink }
}

// New wraps next and registers itself as next's sink.
func New(next ports.StatusProvider, cfg Config, opts ...Option) (*Middleware, error) {
	if next == nil {
		return nil, errors.New("next provider is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.clock == nil {
		o.clock = clock.RealClock{}
	}

	entries := ttlcache.New[string, models.DocumentStatus](
		ttlcache.WithTTL[string, models.DocumentStatus](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, models.DocumentStatus](),
	)
	m := &Middleware{
		next:      next,
		entries:   entries,
		logger:    o.logger,
		metrics:   o.metrics,
		sink:      o.sink,
		stop:      make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	entries.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, models.DocumentStatus]) {
		m.metrics.IncrementCacheEvictions()
		m.logger.Debug("status cache entry evicted", "key", item.Key(), "reason", evictionReason(reason))
	})

	next.SetResultSink(m)
	go m.sweep(o.clock.NewTicker(cfg.SweepInterval))
	return m, nil
}

func (m *Middleware) SetResultSink(sink ports.ResultSink) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()
	m.sink = sink
}

// Query answers from a live entry synchronously or forwards to the wrapped
// provider.
func (m *Middleware) Query(ctx context.Context, reqID models.RequestID, ref models.DocumentReference) {
	if item := m.entries.Get(ref.CanonicalKey()); item != nil && !item.IsExpired() {
		m.metrics.IncrementCacheHits()
		m.logger.DebugContext(ctx, "status served from cache", "request_id", reqID, "document_kind", ref.Kind)
		if sink := m.currentSink(); sink != nil {
			sink.OnStatus(reqID, item.Value())
		}
		return
	}
	m.metrics.IncrementCacheMisses()
	m.next.Query(ctx, reqID, ref)
}

// OnStatus stores status under its originating reference and forwards it.
func (m *Middleware) OnStatus(reqID models.RequestID, status models.DocumentStatus) {
	m.entries.Set(status.Request.CanonicalKey(), status, ttlcache.DefaultTTL)
	if sink := m.currentSink(); sink != nil {
		sink.OnStatus(reqID, status)
	}
}

func (m *Middleware) OnError(reqID models.RequestID, err *models.QueryError) {
	if sink := m.currentSink(); sink != nil {
		sink.OnError(reqID, err)
	}
}

// Dispose stops the sweep, drops every entry and disposes the wrapped
// provider.
func (m *Middleware) Dispose(ctx context.Context) error {
	m.disposeOnce.Do(func() {
		close(m.stop)
		<-m.sweepDone
		m.entries.DeleteAll()
		if err := m.next.Dispose(ctx); err != nil {
			m.disposeErr = fmt.Errorf("dispose wrapped provider: %w", err)
		}
	})
	return m.disposeErr
}

// Len reports the number of stored entries, expired ones included until
// the next sweep.
func (m *Middleware) Len() int {
	return m.entries.Len()
}

func (m *Middleware) sweep(ticker clock.Ticker) {
	defer close(m.sweepDone)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			m.entries.DeleteExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Middleware) currentSink() ports.ResultSink {
	m.sinkMu.RLock()
	defer m.sinkMu.RUnlock()
	return m.sink
}

func evictionReason(r ttlcache.EvictionReason) string {
	switch r {
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	default:
		return "deleted"
	}
}

var _ ports.StatusProvider = (*Middleware)(nil)
var _ ports.ResultSink = (*Middleware)(nil)
