// Package chrome opens checker sessions in a Chrome process driven over the
// DevTools protocol.
package chrome

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"docstatus/internal/checker/browser"
	"docstatus/internal/checker/models"
)

//go:embed script.js
var submitScript string

const (
	bindingName = "__docstatusBridge"
	formMarker  = `form[data-jtoken]`

	defaultMarkerTimeout = 10 * time.Second
	navigationTimeout    = 30 * time.Second
	submitTimeout        = 5 * time.Second
)

// Launcher owns one Chrome process.
type Launcher struct {
	targetURL     string
	userAgent     string
	markerTimeout time.Duration
	logger        *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// NewLaunchFunc returns a browser.LaunchFunc starting Chrome through chromedp.
func NewLaunchFunc(logger *slog.Logger) browser.LaunchFunc {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return func(ctx context.Context, targetURL string, opts browser.LaunchOptions) (browser.Launcher, error) {
		l, err := Launch(ctx, targetURL, opts, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// Launch starts Chrome. The process outlives ctx and is stopped by Close.
func Launch(ctx context.Context, targetURL string, opts browser.LaunchOptions, logger *slog.Logger) (*Launcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chrome protocol error", "detail", fmt.Sprintf(format, args...))
		}),
	)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("start chrome: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", ctx.Err())
	}

	markerTimeout := opts.MarkerTimeout
	if markerTimeout <= 0 {
		markerTimeout = defaultMarkerTimeout
	}
	logger.InfoContext(ctx, "chrome started", "headless", opts.Headless, "args", opts.Args)
	return &Launcher{
		targetURL:     targetURL,
		userAgent:     opts.UserAgent,
		markerTimeout: markerTimeout,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func allocatorOptions(opts browser.LaunchOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	for _, arg := range opts.Args {
		name, value := parseFlag(arg)
		if name == "" {
			continue
		}
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	return allocOpts
}

// parseFlag splits a command line switch such as --window-size=800,600.
func parseFlag(arg string) (string, any) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return "", nil
	}
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// NewSession opens a tab on the checker page and installs the submission
// script. Any failure closes the tab before returning.
func (l *Launcher) NewSession(ctx context.Context, bridge browser.Bridge) (browser.Session, error) {
	if err := l.browserCtx.Err(); err != nil {
		return nil, models.WrapQueryError(models.ErrorAutomationFailure, "browser is closed", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(l.browserCtx)
	s := &session{ctx: tabCtx, cancel: tabCancel, bridge: bridge, logger: l.logger}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	setupCtx, cancel := context.WithTimeout(tabCtx, navigationTimeout+l.markerTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := l.open(setupCtx, s); err != nil {
		_ = s.Close()
		return nil, err
	}
	l.logger.DebugContext(ctx, "browser session ready", "target_url", l.targetURL)
	return s, nil
}

func (l *Launcher) open(ctx context.Context, s *session) error {
	setup := []chromedp.Action{
		network.Enable(),
		runtime.Enable(),
		runtime.AddBinding(bindingName),
	}
	if l.userAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(l.userAgent))
	}
	if err := chromedp.Run(ctx, setup...); err != nil {
		return models.WrapQueryError(models.ErrorAutomationFailure, "failed to prepare browser tab", err)
	}

	rsp, err := chromedp.RunResponse(ctx, chromedp.Navigate(l.targetURL))
	if err != nil {
		return models.WrapQueryError(models.ErrorTransportFailure, "failed to load the checker page", err)
	}
	if rsp != nil && (rsp.Status < 200 || rsp.Status >= 300) {
		return models.NewQueryError(models.ErrorTransportFailure, statusLine(rsp))
	}

	markerCtx, cancel := context.WithTimeout(ctx, l.markerTimeout)
	defer cancel()
	if err := chromedp.Run(markerCtx, chromedp.WaitReady(formMarker, chromedp.ByQuery)); err != nil {
		return models.WrapQueryError(models.ErrorAutomationFailure, "checker form not found on the page", err)
	}

	var installed bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(submitScript, &installed)); err != nil {
		return models.WrapQueryError(models.ErrorAutomationFailure, "failed to install the submission script", err)
	}
	if !installed {
		return models.NewQueryError(models.ErrorAutomationFailure, "submission script did not initialize")
	}
	return nil
}

// statusLine renders "<code> <text>" falling back to the canonical text.
func statusLine(rsp *network.Response) string {
	text := strings.TrimSpace(rsp.StatusText)
	if text == "" {
		text = http.StatusText(int(rsp.Status))
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s", rsp.Status, text))
}

// Close stops Chrome. Open sessions die with it.
func (l *Launcher) Close() error {
	l.closeOnce.Do(func() {
		if err := chromedp.Cancel(l.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			l.closeErr = err
		}
		l.browserCancel()
		l.allocCancel()
	})
	return l.closeErr
}

type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	bridge browser.Bridge
	logger *slog.Logger

	broken    atomic.Bool
	closeOnce sync.Once
}

// envelope is the single message shape sent through the page binding. The
// page echoes the id and ticket it was submitted with.
type envelope struct {
	ID       models.RequestID `json:"id"`
	Ticket   string           `json:"ticket"`
	OK       bool             `json:"ok"`
	Kind     string           `json:"kind,omitempty"`
	Message  string           `json:"message,omitempty"`
	Response string           `json:"response,omitempty"`
}

func (s *session) Submit(ctx context.Context, ticket browser.Ticket, form models.FormPayload) error {
	if !s.Usable() {
		return errors.New("browser session is closed")
	}
	id, err := json.Marshal(ticket.RequestID)
	if err != nil {
		return fmt.Errorf("encode request id: %w", err)
	}
	query, err := json.Marshal(ticket.Query)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	fields, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	runCtx, cancel := context.WithTimeout(s.ctx, submitTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var accepted bool
	expr := fmt.Sprintf("window.__docstatusSubmit(%s, %s, %s)", id, query, fields)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &accepted)); err != nil {
		return fmt.Errorf("dispatch submission: %w", err)
	}
	if !accepted {
		return errors.New("submission script rejected the request")
	}
	return nil
}

func (s *session) Usable() bool {
	return !s.broken.Load() && s.ctx.Err() == nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.broken.Store(true)
		s.cancel()
	})
	return nil
}

// onEvent runs on the chromedp event loop and must not block.
func (s *session) onEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name != bindingName {
			return
		}
		go s.dispatch(ev.Payload)
	case *inspector.EventTargetCrashed:
		s.broken.Store(true)
		s.logger.Warn("browser tab crashed")
	case *inspector.EventDetached:
		s.broken.Store(true)
		s.logger.Warn("browser tab detached", "reason", ev.Reason)
	}
}

func (s *session) dispatch(payload string) {
	var msg envelope
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		s.logger.Error("undecodable bridge message", "error", err)
		return
	}
	if msg.ID == "" || msg.Ticket == "" {
		s.logger.Error("bridge message without request id or ticket", "request_id", msg.ID)
		return
	}
	ticket := browser.Ticket{RequestID: msg.ID, Query: msg.Ticket}
	if msg.OK {
		s.bridge.ReportSuccess(ticket, []byte(msg.Response))
		return
	}
	s.bridge.ReportFailure(ticket, browser.ParseFailureKind(msg.Kind), msg.Message)
}
