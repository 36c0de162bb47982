package waiter

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstatus/internal/checker/models"
	"docstatus/pkg/platform/sentinel"
)

func TestRegistry_DeliversOnce(t *testing.T) {
	r := New(nil)
	ch, cancel, err := r.Register("a")
	require.NoError(t, err)
	defer cancel()

	status := models.DocumentStatus{Code: models.StatusReady}
	r.OnStatus("a", status)
	r.OnStatus("a", status)

	out := <-ch
	assert.Equal(t, models.StatusReady, out.Status.Code)
	assert.Nil(t, out.Err)
	assert.Len(t, ch, 0)
	assert.Zero(t, r.Waiting())
}

func TestRegistry_RejectsDuplicateWaiter(t *testing.T) {
	r := New(nil)
	_, cancel, err := r.Register("a")
	require.NoError(t, err)

	_, _, err = r.Register("a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyWaiting))
	assert.True(t, errors.Is(err, sentinel.ErrConflict))

	cancel()
	_, cancel, err = r.Register("a")
	require.NoError(t, err)
	cancel()
}

func TestRegistry_StaleCancelKeepsNewWaiter(t *testing.T) {
	r := New(nil)
	first, cancelFirst, err := r.Register("a")
	require.NoError(t, err)

	r.OnError("a", models.NewQueryError(models.ErrorTimeout, "slow"))
	<-first

	second, cancelSecond, err := r.Register("a")
	require.NoError(t, err)
	defer cancelSecond()

	cancelFirst()
	assert.Equal(t, 1, r.Waiting())

	r.OnStatus("a", models.DocumentStatus{Code: models.StatusShipped})
	assert.Equal(t, models.StatusShipped, (<-second).Status.Code)
}

func TestRegistry_UnknownRequestIsDropped(t *testing.T) {
	r := New(nil)
	assert.NotPanics(t, func() {
		r.OnStatus("ghost", models.DocumentStatus{})
	})
}

func TestRegistry_LogLevels(t *testing.T) {
	var buf bytes.Buffer
	r := New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	r.OnError("a", models.NewQueryError(models.ErrorRemoteRejected, "not found"))
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	r.OnError("b", models.NewQueryError(models.ErrorTransportFailure, "502 Bad Gateway"))
	assert.Contains(t, buf.String(), "level=ERROR")
}
