package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/mock/gomock"

	"docstatus/internal/checker/models"
)

type fakeLauncher struct {
	mu         sync.Mutex
	sessions   []*fakeSession
	errs       []error
	closeCalls int
	newCalls   int

	// submitGate, when set, is handed to every new session.
	submitGate chan struct{}
	entered    chan models.RequestID
}

func (l *fakeLauncher) launch(context.Context, string, LaunchOptions) (Launcher, error) {
	return l, nil
}

func (l *fakeLauncher) NewSession(_ context.Context, _ Bridge) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.newCalls++
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		return nil, err
	}
	s := &fakeSession{usable: true, gate: l.submitGate, entered: l.entered}
	l.sessions = append(l.sessions, s)
	return s, nil
}

func (l *fakeLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeCalls++
	return nil
}

func (l *fakeLauncher) failNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *fakeLauncher) created() []*fakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeSession(nil), l.sessions...)
}

func (l *fakeLauncher) attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newCalls
}

type fakeSession struct {
	mu        sync.Mutex
	usable    bool
	closed    bool
	submitErr error
	tickets   []Ticket
	forms     []models.FormPayload

	gate    chan struct{}
	entered chan models.RequestID
}

func (s *fakeSession) Submit(_ context.Context, ticket Ticket, form models.FormPayload) error {
	if s.entered != nil {
		s.entered <- ticket.RequestID
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return s.submitErr
	}
	s.tickets = append(s.tickets, ticket)
	s.forms = append(s.forms, form)
	return nil
}

func (s *fakeSession) Usable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usable && !s.closed
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) setUsable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usable = v
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) submissions() []models.RequestID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]models.RequestID, 0, len(s.tickets))
	for _, t := range s.tickets {
		ids = append(ids, t.RequestID)
	}
	return ids
}

// ticket returns the most recent ticket submitted for reqID on any session.
// The zero ticket is returned when nothing was submitted.
func (l *fakeLauncher) ticket(reqID models.RequestID) Ticket {
	var last Ticket
	for _, s := range l.created() {
		s.mu.Lock()
		for _, t := range s.tickets {
			if t.RequestID == reqID {
				last = t
			}
		}
		s.mu.Unlock()
	}
	return last
}

// kindMatcher matches a *models.QueryError by kind.
type kindMatcher struct {
	kind models.ErrorKind
}

func errorOfKind(kind models.ErrorKind) gomock.Matcher {
	return kindMatcher{kind: kind}
}

func (m kindMatcher) Matches(x any) bool {
	var qerr *models.QueryError
	err, ok := x.(error)
	if !ok || !errors.As(err, &qerr) {
		return false
	}
	return qerr.Kind == m.kind
}

func (m kindMatcher) String() string {
	return fmt.Sprintf("query error of kind %s", m.kind)
}

// recordingSink collects outcomes for concurrency tests.
type recordingSink struct {
	mu       sync.Mutex
	statuses map[models.RequestID]int
	errs     map[models.RequestID][]models.ErrorKind
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		statuses: make(map[models.RequestID]int),
		errs:     make(map[models.RequestID][]models.ErrorKind),
	}
}

func (r *recordingSink) OnStatus(reqID models.RequestID, _ models.DocumentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[reqID]++
}

func (r *recordingSink) OnError(reqID models.RequestID, err *models.QueryError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[reqID] = append(r.errs[reqID], err.Kind)
}

func (r *recordingSink) outcomes(reqID models.RequestID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[reqID] + len(r.errs[reqID])
}
