package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	clocktesting "k8s.io/utils/clock/testing"

	"docstatus/pkg/requestcontext"
)

func TestWithClockPinsNow(t *testing.T) {
	start := time.Date(2024, time.March, 12, 9, 30, 0, 0, time.UTC)
	fc := clocktesting.NewFakePassiveClock(start)

	var seen []time.Time
	handler := WithClock(fc)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = append(seen, requestcontext.Now(r.Context()))
		fc.SetTime(start.Add(time.Hour))
		seen = append(seen, requestcontext.Now(r.Context()))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []time.Time{start, start}, seen)
}

func TestMiddlewareUsesWallClock(t *testing.T) {
	var got time.Time
	before := time.Now()
	Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, got.Before(before))
}
