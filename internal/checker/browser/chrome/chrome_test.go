package chrome

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstatus/internal/checker/browser"
	"docstatus/internal/checker/models"
)

type report struct {
	ticket  browser.Ticket
	ok      bool
	payload string
	kind    browser.FailureKind
	message string
}

type stubBridge struct {
	mu      sync.Mutex
	reports []report
}

func (b *stubBridge) ReportSuccess(ticket browser.Ticket, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, report{ticket: ticket, ok: true, payload: string(payload)})
}

func (b *stubBridge) ReportFailure(ticket browser.Ticket, kind browser.FailureKind, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, report{ticket: ticket, kind: kind, message: message})
}

func (b *stubBridge) all() []report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]report(nil), b.reports...)
}

func newTestSession(t *testing.T, bridge browser.Bridge) *session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &session{
		ctx:    ctx,
		cancel: cancel,
		bridge: bridge,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		arg       string
		wantName  string
		wantValue any
	}{
		{"--no-sandbox", "no-sandbox", true},
		{"--window-size=1280,800", "window-size", "1280,800"},
		{"  --lang=uk-UA ", "lang", "uk-UA"},
		{"--", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, value := parseFlag(tt.arg)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "502 Bad Gateway", statusLine(&network.Response{Status: 502, StatusText: "Bad Gateway"}))
	assert.Equal(t, "503 Service Unavailable", statusLine(&network.Response{Status: 503}))
	assert.Equal(t, "599", statusLine(&network.Response{Status: 599}))
}

func TestSession_DispatchesBridgeMessages(t *testing.T) {
	bridge := &stubBridge{}
	s := newTestSession(t, bridge)

	s.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{"id":"a","ticket":"t-a","ok":true,"response":"{\"0\":{}}"}`})
	s.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{"id":"b","ticket":"t-b","ok":false,"kind":"network","message":"502 Bad Gateway"}`})
	s.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{"id":"c","ticket":"t-c","ok":false,"kind":"script","message":"CSRF token not found on page"}`})
	s.onEvent(&runtime.EventBindingCalled{Name: "otherBinding", Payload: `{"id":"d","ok":true}`})
	s.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `not json`})
	s.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{"ok":true}`})
	s.onEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{"id":"e","ok":true}`})

	require.Eventually(t, func() bool { return len(bridge.all()) == 3 }, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	byID := make(map[models.RequestID]report)
	for _, r := range bridge.all() {
		byID[r.ticket.RequestID] = r
	}
	require.Len(t, byID, 3)
	assert.True(t, byID["a"].ok)
	assert.Equal(t, browser.Ticket{RequestID: "a", Query: "t-a"}, byID["a"].ticket)
	assert.Equal(t, `{"0":{}}`, byID["a"].payload)
	assert.Equal(t, browser.FailureNetwork, byID["b"].kind)
	assert.Equal(t, "502 Bad Gateway", byID["b"].message)
	assert.Equal(t, browser.FailureScript, byID["c"].kind)
}

func TestSession_CrashMarksUnusable(t *testing.T) {
	s := newTestSession(t, &stubBridge{})
	assert.True(t, s.Usable())

	s.onEvent(&inspector.EventTargetCrashed{})
	assert.False(t, s.Usable())
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := newTestSession(t, &stubBridge{})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.Usable())

	err := s.Submit(context.Background(), browser.Ticket{RequestID: "a", Query: "t-a"}, models.FormPayload{})
	require.Error(t, err)
}
