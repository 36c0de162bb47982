package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	clocktesting "k8s.io/utils/clock/testing"

	"docstatus/internal/checker/metrics"
	"docstatus/internal/checker/models"
	"docstatus/internal/checker/ports/mocks"
)

type MiddlewareSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	next    *mocks.MockStatusProvider
	sink    *mocks.MockResultSink
	clock   *clocktesting.FakeClock
	metrics *metrics.Metrics
	cache   *Middleware
	ctx     context.Context
	ref     models.DocumentReference
	status  models.DocumentStatus
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.next = mocks.NewMockStatusProvider(s.ctrl)
	s.sink = mocks.NewMockResultSink(s.ctrl)
	s.clock = clocktesting.NewFakeClock(time.Now())
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()
	s.ref = models.NewIDCard("123456789")
	s.status = models.DocumentStatus{
		Code:          models.StatusReady,
		Message:       "ready",
		UpdatedAt:     time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		RawStatusDate: "12.03.2024",
		Request:       s.ref,
	}
	s.cache = s.newMiddleware(Config{TTL: time.Hour, SweepInterval: time.Minute})
}

func (s *MiddlewareSuite) TearDownTest() {
	s.next.EXPECT().Dispose(gomock.Any()).Return(nil).AnyTimes()
	_ = s.cache.Dispose(context.Background())
}

func (s *MiddlewareSuite) newMiddleware(cfg Config) *Middleware {
	var registered *Middleware
	s.next.EXPECT().SetResultSink(gomock.Any()).Do(func(sink any) {
		registered, _ = sink.(*Middleware)
	})
	m, err := New(s.next, cfg, WithClock(s.clock), WithMetrics(s.metrics), WithResultSink(s.sink))
	s.Require().NoError(err)
	s.Same(m, registered, "middleware registers itself as the wrapped provider's sink")
	return m
}

func (s *MiddlewareSuite) TestMissForwardsToProvider() {
	s.next.EXPECT().Query(s.ctx, models.RequestID("a"), s.ref)

	s.cache.Query(s.ctx, "a", s.ref)

	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.CacheMisses))
}

func (s *MiddlewareSuite) TestHitSkipsProvider() {
	gomock.InOrder(
		s.sink.EXPECT().OnStatus(models.RequestID("a"), s.status),
		s.sink.EXPECT().OnStatus(models.RequestID("b"), s.status),
	)

	s.cache.OnStatus("a", s.status)
	s.cache.Query(s.ctx, "b", s.ref)

	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.CacheHits))
}

func (s *MiddlewareSuite) TestFreshStatusReplacesEntry() {
	newer := s.status
	newer.Code = models.StatusInTransit
	s.sink.EXPECT().OnStatus(gomock.Any(), gomock.Any()).Times(2)
	s.sink.EXPECT().OnStatus(models.RequestID("c"), newer)

	s.cache.OnStatus("a", s.status)
	s.cache.OnStatus("b", newer)
	s.cache.Query(s.ctx, "c", s.ref)
	s.Equal(1, s.cache.Len())
}

func (s *MiddlewareSuite) TestErrorsAreNotCached() {
	qerr := models.NewQueryError(models.ErrorTransportFailure, "502 Bad Gateway")
	s.sink.EXPECT().OnError(models.RequestID("a"), qerr)
	s.next.EXPECT().Query(s.ctx, models.RequestID("b"), s.ref)

	s.cache.OnError("a", qerr)
	s.cache.Query(s.ctx, "b", s.ref)
	s.Zero(s.cache.Len())
}

func (s *MiddlewareSuite) TestKindIsPartOfTheKey() {
	passport := models.NewLegacyPassport("НС", "123456789")
	s.sink.EXPECT().OnStatus(models.RequestID("a"), s.status)
	s.next.EXPECT().Query(s.ctx, models.RequestID("b"), passport)

	s.cache.OnStatus("a", s.status)
	s.cache.Query(s.ctx, "b", passport)
}

func (s *MiddlewareSuite) TestEntryExpiresAfterTTL() {
	s.next.EXPECT().Dispose(gomock.Any()).Return(nil)
	s.Require().NoError(s.cache.Dispose(s.ctx))
	// Entry expiry follows the wall clock; only the sweep runs on s.clock.
	const ttl = 250 * time.Millisecond
	s.cache = s.newMiddleware(Config{TTL: ttl, SweepInterval: time.Minute})

	s.sink.EXPECT().OnStatus(models.RequestID("a"), s.status)
	s.sink.EXPECT().OnStatus(models.RequestID("b"), s.status)
	s.next.EXPECT().Query(s.ctx, models.RequestID("c"), s.ref)

	stored := time.Now()
	s.cache.OnStatus("a", s.status)
	s.cache.Query(s.ctx, "b", s.ref)
	s.Require().Less(time.Since(stored), ttl, "hit must be checked inside the TTL")

	time.Sleep(2 * ttl)
	s.cache.Query(s.ctx, "c", s.ref)
}

func (s *MiddlewareSuite) TestSweepRemovesExpiredEntries() {
	s.next.EXPECT().Dispose(gomock.Any()).Return(nil)
	s.Require().NoError(s.cache.Dispose(s.ctx))
	s.cache = s.newMiddleware(Config{TTL: 20 * time.Millisecond, SweepInterval: time.Minute})

	s.sink.EXPECT().OnStatus(gomock.Any(), gomock.Any())
	s.cache.OnStatus("a", s.status)
	time.Sleep(40 * time.Millisecond)

	s.Eventually(func() bool {
		s.clock.Step(time.Minute)
		return s.cache.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func (s *MiddlewareSuite) TestSetResultSinkReplacesConsumer() {
	other := mocks.NewMockResultSink(s.ctrl)
	other.EXPECT().OnStatus(models.RequestID("a"), s.status)

	s.cache.SetResultSink(other)
	s.cache.OnStatus("a", s.status)
}

func (s *MiddlewareSuite) TestDisposeIsIdempotent() {
	s.next.EXPECT().Dispose(gomock.Any()).Return(errors.New("chrome already gone")).Times(1)
	s.sink.EXPECT().OnStatus(gomock.Any(), gomock.Any())
	s.cache.OnStatus("a", s.status)

	err := s.cache.Dispose(s.ctx)
	s.Require().Error(err)
	s.Contains(err.Error(), "chrome already gone")
	s.Zero(s.cache.Len())

	s.Equal(err, s.cache.Dispose(s.ctx))
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := New(nil, Config{})
	if err == nil || err.Error() != "next provider is required" {
		t.Fatalf("expected missing provider error, got %v", err)
	}
}
