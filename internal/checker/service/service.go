// Package service composes the browser provider and the status cache into
// the checker entry point used by the front-ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"docstatus/internal/checker/browser"
	"docstatus/internal/checker/browser/chrome"
	"docstatus/internal/checker/cache"
	"docstatus/internal/checker/metrics"
	"docstatus/internal/checker/models"
	"docstatus/internal/checker/ports"
	"docstatus/pkg/platform/circuit"
)

// Config groups the settings of every layer.
type Config struct {
	Browser browser.Config
	Cache   cache.Config

	// BreakerFailureThreshold consecutive session creation failures pause
	// creation for BreakerCooldown.
	BreakerFailureThreshold int
	BreakerCooldown         time.Duration
}

// Service is the checker facade. It owns the whole provider chain.
type Service struct {
	root   ports.StatusProvider
	cache  *cache.Middleware
	logger *slog.Logger

	sinkMu sync.RWMutex
	sink   ports.ResultSink
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.WithTickerAndDelayedExecution
	launch  browser.LaunchFunc
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(c clock.WithTickerAndDelayedExecution) Option {
	return func(o *options) { o.clock = c }
}

// WithLauncher replaces the Chrome launcher.
func WithLauncher(launch browser.LaunchFunc) Option {
	return func(o *options) { o.launch = launch }
}

func collect(opts []Option) options {
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
	return o
}

// New launches the browser provider, wraps it with the cache and wires sink
// as the final consumer.
func New(ctx context.Context, cfg Config, sink ports.ResultSink, opts ...Option) (*Service, error) {
	if sink == nil {
		return nil, errors.New("result sink is required")
	}
	o := collect(opts)
	if o.launch == nil {
		o.launch = chrome.NewLaunchFunc(o.logger)
	}

	breakerOpts := []circuit.Option{circuit.WithClock(o.clock)}
	if cfg.BreakerFailureThreshold > 0 {
		breakerOpts = append(breakerOpts, circuit.WithFailureThreshold(cfg.BreakerFailureThreshold))
	}
	if cfg.BreakerCooldown > 0 {
		breakerOpts = append(breakerOpts, circuit.WithCooldown(cfg.BreakerCooldown))
	}

	provider, err := browser.New(ctx, cfg.Browser,
		browser.WithLauncher(o.launch),
		browser.WithLogger(o.logger),
		browser.WithMetrics(o.metrics),
		browser.WithClock(o.clock),
		browser.WithBreaker(circuit.New("browser-session", breakerOpts...)),
	)
	if err != nil {
		return nil, fmt.Errorf("create browser provider: %w", err)
	}

	svc, err := NewWithProvider(provider, sink, cfg.Cache, opts...)
	if err != nil {
		_ = provider.Dispose(ctx)
		return nil, err
	}
	return svc, nil
}

// NewWithProvider wires an arbitrary root provider behind the cache.
func NewWithProvider(root ports.StatusProvider, sink ports.ResultSink, cacheCfg cache.Config, opts ...Option) (*Service, error) {
	if root == nil {
		return nil, errors.New("root provider is required")
	}
	if sink == nil {
		return nil, errors.New("result sink is required")
	}
	o := collect(opts)

	mw, err := cache.New(root, cacheCfg,
		cache.WithLogger(o.logger),
		cache.WithMetrics(o.metrics),
		cache.WithClock(o.clock),
		cache.WithResultSink(sink),
	)
	if err != nil {
		return nil, fmt.Errorf("create status cache: %w", err)
	}
	return &Service{root: root, cache: mw, logger: o.logger, sink: sink}, nil
}

func (s *Service) SetResultSink(sink ports.ResultSink) {
	s.sinkMu.Lock()
	s.sink = sink
	s.sinkMu.Unlock()
	s.cache.SetResultSink(sink)
}

// Query rejects malformed references and forwards the rest to the cache.
func (s *Service) Query(ctx context.Context, reqID models.RequestID, ref models.DocumentReference) {
	if err := ref.Validate(); err != nil {
		s.sinkMu.RLock()
		sink := s.sink
		s.sinkMu.RUnlock()
		if sink != nil {
			sink.OnError(reqID, models.WrapQueryError(models.ErrorAutomationFailure, "invalid document reference", err))
		}
		return
	}
	s.logger.InfoContext(ctx, "document status requested",
		"request_id", reqID,
		"document_kind", ref.Kind,
	)
	s.cache.Query(ctx, reqID, ref)
}

// Dispose tears down the cache and the provider chain below it.
func (s *Service) Dispose(ctx context.Context) error {
	return s.cache.Dispose(ctx)
}

var _ ports.StatusProvider = (*Service)(nil)
