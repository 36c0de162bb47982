// Package browser runs document status lookups through a pool of browser
// sessions parked on the checker page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"docstatus/internal/checker/metrics"
	"docstatus/internal/checker/models"
	"docstatus/internal/checker/ports"
	"docstatus/pkg/platform/circuit"
	"docstatus/pkg/platform/sentinel"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxPoolSize    = 5

	tracerName = "docstatus/internal/checker/browser"
)

// Config controls pool size and timing.
type Config struct {
	MaxPoolSize    int
	RequestTimeout time.Duration
	TargetURL      string
	Launch         LaunchOptions
}

// Provider implements ports.StatusProvider on top of a Launcher.
//
// The pool and the pending table share one mutex. It is never held across
// browser I/O, timer creation or stop, or a sink call.
type Provider struct {
	cfg      Config
	launcher Launcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    clock.WithDelayedExecution
	breaker  *circuit.Breaker
	tracer   trace.Tracer

	sinkMu sync.RWMutex
	sink   ports.ResultSink

	mu       sync.Mutex
	idle     []Session
	vacancy  int
	pending  map[models.RequestID]*pendingQuery
	disposed bool

	disposeOnce sync.Once
	disposeErr  error
}

type pendingQuery struct {
	ticket  Ticket
	ref     models.DocumentReference
	started time.Time
	timer   clock.Timer
	span    trace.Span
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.WithDelayedExecution
	launch  LaunchFunc
	breaker *circuit.Breaker
	sink    ports.ResultSink
	tracer  trace.Tracer
}

// Option configures a Provider.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(c clock.WithDelayedExecution) Option {
	return func(o *options) { o.clock = c }
}

// WithLauncher sets how the browser process is started.
func WithLauncher(launch LaunchFunc) Option {
	return func(o *options) { o.launch = launch }
}

// WithBreaker guards session creation. Defaults to a breaker opening after
// five consecutive failures.
func WithBreaker(b *circuit.Breaker) Option {
	return func(o *options) { o.breaker = b }
}

func WithResultSink(sink ports.ResultSink) Option {
	return func(o *options) { o.sink = sink }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New starts the browser and returns a provider with an empty pool.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.launch == nil {
		return nil, errors.New("launcher is required")
	}
	if cfg.TargetURL == "" {
		return nil, errors.New("target url is required")
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = DefaultMaxPoolSize
	}
	if cfg.MaxPoolSize < 0 {
		return nil, fmt.Errorf("max pool size must be positive, got %d", cfg.MaxPoolSize)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.clock == nil {
		o.clock = clock.RealClock{}
	}
	if o.breaker == nil {
		o.breaker = circuit.New("browser-session", circuit.WithClock(o.clock))
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	launcher, err := o.launch(ctx, cfg.TargetURL, cfg.Launch)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	p := &Provider{
		cfg:      cfg,
		launcher: launcher,
		logger:   o.logger,
		metrics:  o.metrics,
		clock:    o.clock,
		breaker:  o.breaker,
		tracer:   o.tracer,
		sink:     o.sink,
		vacancy:  cfg.MaxPoolSize,
		pending:  make(map[models.RequestID]*pendingQuery),
	}
	p.metrics.SetPool(p.vacancy, 0, 0)
	o.logger.InfoContext(ctx, "browser provider started",
		"target_url", cfg.TargetURL,
		"max_pool_size", cfg.MaxPoolSize,
	)
	return p, nil
}

// SetResultSink replaces the downstream consumer.
func (p *Provider) SetResultSink(sink ports.ResultSink) {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	p.sink = sink
}

// Query schedules a lookup. Exactly one outcome is delivered to the sink
// unless the provider is disposed first.
func (p *Provider) Query(ctx context.Context, reqID models.RequestID, ref models.DocumentReference) {
	ctx, span := p.tracer.Start(ctx, "browser.Query", trace.WithAttributes(
		attribute.String("request.id", string(reqID)),
		attribute.String("document.kind", string(ref.Kind)),
	))

	form, err := models.BuildForm(ref)
	if err != nil {
		p.reject(ctx, span, reqID, models.AsQueryError(err))
		return
	}

	entry := &pendingQuery{
		ticket:  Ticket{RequestID: reqID, Query: uuid.NewString()},
		ref:     ref,
		started: p.clock.Now(),
		span:    span,
	}
	if qerr := p.reserve(reqID, entry); qerr != nil {
		p.reject(ctx, span, reqID, qerr)
		return
	}

	session, qerr := p.acquire(ctx)
	if qerr != nil {
		if p.release(reqID, entry) {
			p.deliverError(ctx, reqID, entry, qerr, 0)
		}
		return
	}

	timer := p.clock.AfterFunc(p.cfg.RequestTimeout, func() { p.expire(reqID, entry) })
	if !p.arm(reqID, entry, timer) {
		// Only Dispose removes an entry it does not own.
		timer.Stop()
		p.returnSession(session)
		return
	}

	p.logger.DebugContext(ctx, "submitting status query",
		"request_id", reqID,
		"document_kind", ref.Kind,
	)
	if err := session.Submit(ctx, entry.ticket, form); err != nil {
		p.discardSession(session)
		if p.release(reqID, entry) {
			timer.Stop()
			p.deliverError(ctx, reqID, entry, models.WrapQueryError(models.ErrorAutomationFailure, "failed to dispatch the status form", err), p.clock.Since(entry.started))
		}
		return
	}
	p.returnSession(session)
}

// ReportSuccess resolves the query behind ticket with the raw checker
// response. Results for resolved or superseded queries are ignored.
func (p *Provider) ReportSuccess(ticket Ticket, payload []byte) {
	entry, ok := p.take(ticket)
	if !ok {
		p.logger.Debug("dropping late result", "request_id", ticket.RequestID, "query", ticket.Query)
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	elapsed := p.clock.Since(entry.started)

	status, err := models.DecodeStatus(entry.ref, payload)
	if err != nil {
		p.deliverError(context.Background(), ticket.RequestID, entry, models.AsQueryError(err), elapsed)
		return
	}
	p.deliverStatus(ticket.RequestID, entry, status, elapsed)
}

// ReportFailure resolves the query behind ticket with a failure raised in
// the page.
func (p *Provider) ReportFailure(ticket Ticket, kind FailureKind, message string) {
	entry, ok := p.take(ticket)
	if !ok {
		p.logger.Debug("dropping late failure", "request_id", ticket.RequestID, "query", ticket.Query, "kind", kind)
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}

	errKind := models.ErrorAutomationFailure
	if kind == FailureNetwork {
		errKind = models.ErrorTransportFailure
	}
	p.deliverError(context.Background(), ticket.RequestID, entry, models.NewQueryError(errKind, message), p.clock.Since(entry.started))
}

// Dispose closes every session and the browser. Pending queries are
// dropped without notifying the sink.
func (p *Provider) Dispose(ctx context.Context) error {
	p.disposeOnce.Do(func() {
		p.mu.Lock()
		p.disposed = true
		pending := p.pending
		p.pending = make(map[models.RequestID]*pendingQuery)
		idle := p.idle
		p.idle = nil
		p.reportPoolLocked()
		p.mu.Unlock()

		for _, entry := range pending {
			if entry.timer != nil {
				entry.timer.Stop()
			}
			entry.span.End()
		}

		var errs []error
		for _, s := range idle {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := p.launcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		p.disposeErr = errors.Join(errs...)
		p.logger.InfoContext(ctx, "browser provider disposed",
			"dropped_queries", len(pending),
			"closed_sessions", len(idle),
		)
	})
	return p.disposeErr
}

func (p *Provider) reserve(reqID models.RequestID, entry *pendingQuery) *models.QueryError {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return models.WrapQueryError(models.ErrorTransportFailure, "the checker is shutting down", sentinel.ErrUnavailable)
	}
	if _, exists := p.pending[reqID]; exists {
		return models.NewQueryError(models.ErrorPoolExhausted, "another request for this id is already in progress")
	}
	p.pending[reqID] = entry
	p.reportPoolLocked()
	return nil
}

// arm attaches the timeout timer. It reports false if the entry is gone.
func (p *Provider) arm(reqID models.RequestID, entry *pendingQuery, timer clock.Timer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[reqID] != entry {
		return false
	}
	entry.timer = timer
	return true
}

// release removes entry if it still owns reqID.
func (p *Provider) release(reqID models.RequestID, entry *pendingQuery) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[reqID] != entry {
		return false
	}
	delete(p.pending, reqID)
	p.reportPoolLocked()
	return true
}

// take removes the entry for ticket. An entry registered by a later query
// under the same RequestID carries a different ticket and is left alone.
func (p *Provider) take(ticket Ticket) (*pendingQuery, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.pending[ticket.RequestID]
	if !ok || entry.ticket != ticket {
		return nil, false
	}
	delete(p.pending, ticket.RequestID)
	p.reportPoolLocked()
	return entry, true
}

// expire runs on the clock's timer goroutine and must not call back into
// the clock.
func (p *Provider) expire(reqID models.RequestID, entry *pendingQuery) {
	if !p.release(reqID, entry) {
		return
	}
	qerr := models.NewQueryError(models.ErrorTimeout,
		fmt.Sprintf("no response from the checker within %s", p.cfg.RequestTimeout))
	p.deliverError(context.Background(), reqID, entry, qerr, p.cfg.RequestTimeout)
}

func (p *Provider) acquire(ctx context.Context) (Session, *models.QueryError) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, models.WrapQueryError(models.ErrorTransportFailure, "the checker is shutting down", sentinel.ErrUnavailable)
	}
	if p.vacancy == 0 {
		p.mu.Unlock()
		return nil, models.NewQueryError(models.ErrorPoolExhausted, "all browser sessions are busy, please try again later")
	}
	p.vacancy--
	var session Session
	var stale []Session
	for len(p.idle) > 0 {
		last := len(p.idle) - 1
		candidate := p.idle[last]
		p.idle = p.idle[:last]
		if candidate.Usable() {
			session = candidate
			break
		}
		stale = append(stale, candidate)
	}
	p.reportPoolLocked()
	p.mu.Unlock()

	for _, s := range stale {
		p.closeSession(s)
		p.metrics.IncrementSessionsDiscarded()
	}
	if session != nil {
		return session, nil
	}

	session, err := p.createSession(ctx)
	if err != nil {
		p.mu.Lock()
		p.vacancy++
		p.reportPoolLocked()
		p.mu.Unlock()
		return nil, models.AsQueryError(err)
	}
	return session, nil
}

func (p *Provider) createSession(ctx context.Context) (Session, error) {
	if !p.breaker.Allow() {
		return nil, models.WrapQueryError(models.ErrorTransportFailure,
			"the checker page is unreachable, session creation is paused", sentinel.ErrUnavailable)
	}

	session, err := p.launcher.NewSession(ctx, p)
	if err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.metrics.SetBreakerOpen(true)
			p.logger.WarnContext(ctx, "session creation breaker opened", "error", err)
		}
		p.logger.ErrorContext(ctx, "failed to open browser session", "error", err)
		return nil, err
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.SetBreakerOpen(false)
		p.logger.InfoContext(ctx, "session creation breaker closed")
	}
	p.metrics.IncrementSessionsCreated()
	return session, nil
}

// returnSession parks a dispatched session in the idle list.
func (p *Provider) returnSession(s Session) {
	if !s.Usable() {
		p.discardSession(s)
		return
	}
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		p.closeSession(s)
		return
	}
	p.idle = append(p.idle, s)
	p.vacancy++
	p.reportPoolLocked()
	p.mu.Unlock()
}

// discardSession frees the slot held by a broken session.
func (p *Provider) discardSession(s Session) {
	p.mu.Lock()
	if !p.disposed {
		p.vacancy++
		p.reportPoolLocked()
	}
	p.mu.Unlock()
	p.closeSession(s)
	p.metrics.IncrementSessionsDiscarded()
}

func (p *Provider) closeSession(s Session) {
	if err := s.Close(); err != nil {
		p.logger.Warn("failed to close browser session", "error", err)
	}
}

func (p *Provider) reportPoolLocked() {
	p.metrics.SetPool(p.vacancy, len(p.idle), len(p.pending))
}

func (p *Provider) currentSink() ports.ResultSink {
	p.sinkMu.RLock()
	defer p.sinkMu.RUnlock()
	return p.sink
}

func (p *Provider) reject(ctx context.Context, span trace.Span, reqID models.RequestID, qerr *models.QueryError) {
	endSpan(span, qerr)
	p.metrics.ObserveError(qerr.Kind.String(), 0)
	p.logger.DebugContext(ctx, "status query rejected", "request_id", reqID, "error", qerr)
	p.notifyError(reqID, qerr)
}

func (p *Provider) deliverStatus(reqID models.RequestID, entry *pendingQuery, status models.DocumentStatus, elapsed time.Duration) {
	entry.span.SetAttributes(attribute.Int("document.status", int(status.Code)))
	endSpan(entry.span, nil)
	p.metrics.ObserveStatus(elapsed)

	sink := p.currentSink()
	if sink == nil {
		p.logger.Warn("no result sink registered, dropping status", "request_id", reqID)
		return
	}
	sink.OnStatus(reqID, status)
}

func (p *Provider) deliverError(ctx context.Context, reqID models.RequestID, entry *pendingQuery, qerr *models.QueryError, elapsed time.Duration) {
	endSpan(entry.span, qerr)
	p.metrics.ObserveError(qerr.Kind.String(), elapsed)
	p.logger.DebugContext(ctx, "status query failed", "request_id", reqID, "error", qerr)
	p.notifyError(reqID, qerr)
}

func (p *Provider) notifyError(reqID models.RequestID, qerr *models.QueryError) {
	sink := p.currentSink()
	if sink == nil {
		p.logger.Warn("no result sink registered, dropping error", "request_id", reqID, "error", qerr)
		return
	}
	sink.OnError(reqID, qerr)
}

func endSpan(span trace.Span, qerr *models.QueryError) {
	if qerr != nil {
		span.SetAttributes(attribute.String("error.kind", qerr.Kind.String()))
		span.RecordError(qerr)
		span.SetStatus(codes.Error, qerr.Message)
	}
	span.End()
}

var _ ports.StatusProvider = (*Provider)(nil)
var _ Bridge = (*Provider)(nil)
