package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"docstatus/internal/checker/browser"
	"docstatus/internal/checker/models"
	"docstatus/internal/checker/service"
	"docstatus/internal/platform/config"
	"docstatus/internal/platform/logger"
)

const readyPayload = `{"0":{"statusDate":"12.03.2024","status":24,"errorCode":0},"send_status_msg":"ready"}`

// replyLauncher answers each submission through the bridge as soon as it is made.
type replyLauncher struct {
	payload string
}

func (l *replyLauncher) launch(context.Context, string, browser.LaunchOptions) (browser.Launcher, error) {
	return l, nil
}

func (l *replyLauncher) NewSession(_ context.Context, bridge browser.Bridge) (browser.Session, error) {
	return &replySession{bridge: bridge, payload: l.payload}, nil
}

func (l *replyLauncher) Close() error { return nil }

type replySession struct {
	bridge  browser.Bridge
	payload string
}

func (s *replySession) Submit(_ context.Context, ticket browser.Ticket, _ models.FormPayload) error {
	s.bridge.ReportSuccess(ticket, []byte(s.payload))
	return nil
}

func (s *replySession) Usable() bool { return true }
func (s *replySession) Close() error { return nil }

func TestRunCheckPrintsSummary(t *testing.T) {
	cfg, err := config.Load(config.NewViper())
	require.NoError(t, err)
	fc := clocktesting.NewFakeClock(time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC))
	launcher := &replyLauncher{payload: readyPayload}

	var out bytes.Buffer
	err = runCheck(context.Background(), cfg, logger.Discard(), "123456789", time.Second, &out, fc,
		service.WithLauncher(launcher.launch))

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Document 123456789: ready for pickup.")
	assert.Contains(t, out.String(), "12 March 2024 (2 days ago)")
}

func TestRunCheckReportsRejection(t *testing.T) {
	cfg, err := config.Load(config.NewViper())
	require.NoError(t, err)
	fc := clocktesting.NewFakeClock(time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC))
	launcher := &replyLauncher{payload: `{"0":{"errorCode":1}}`}

	var out bytes.Buffer
	err = runCheck(context.Background(), cfg, logger.Discard(), "123456789", time.Second, &out, fc,
		service.WithLauncher(launcher.launch))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nothing was found")
	assert.Empty(t, out.String())
}
