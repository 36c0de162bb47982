// Package waiter turns the asynchronous ResultSink contract into
// per-request channels for synchronous front-ends.
package waiter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"docstatus/internal/checker/models"
	"docstatus/internal/checker/ports"
	"docstatus/pkg/platform/sentinel"
)

// ErrAlreadyWaiting is returned when reqID already has a registered waiter.
var ErrAlreadyWaiting = fmt.Errorf("%w: a request with this id is already waiting", sentinel.ErrConflict)

// Outcome is exactly one of Status or Err.
type Outcome struct {
	Status models.DocumentStatus
	Err    *models.QueryError
}

// Registry is a ResultSink fanning results out to registered waiters.
type Registry struct {
	logger *slog.Logger

	mu      sync.Mutex
	waiters map[models.RequestID]chan Outcome
}

func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		logger:  logger,
		waiters: make(map[models.RequestID]chan Outcome),
	}
}

// Register reserves reqID. The returned channel receives at most one
// outcome; cancel releases the reservation and must always be called.
func (r *Registry) Register(reqID models.RequestID) (<-chan Outcome, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.waiters[reqID]; exists {
		return nil, nil, ErrAlreadyWaiting
	}
	ch := make(chan Outcome, 1)
	r.waiters[reqID] = ch
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.waiters[reqID] == ch {
			delete(r.waiters, reqID)
		}
	}
	return ch, cancel, nil
}

// Waiting reports the number of registered waiters.
func (r *Registry) Waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

func (r *Registry) OnStatus(reqID models.RequestID, status models.DocumentStatus) {
	r.logger.Debug("document status received",
		"request_id", reqID,
		"document_kind", status.Request.Kind,
		"status_code", int(status.Code),
	)
	r.deliver(reqID, Outcome{Status: status})
}

// OnError logs remote rejections as warnings and everything else as errors.
func (r *Registry) OnError(reqID models.RequestID, err *models.QueryError) {
	level := slog.LevelError
	if err.Kind == models.ErrorRemoteRejected {
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "document status query failed",
		"request_id", reqID,
		"error_kind", err.Kind.String(),
		"error", err,
	)
	r.deliver(reqID, Outcome{Err: err})
}

func (r *Registry) deliver(reqID models.RequestID, out Outcome) {
	r.mu.Lock()
	ch, ok := r.waiters[reqID]
	if ok {
		delete(r.waiters, reqID)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("no waiter for result", "request_id", reqID)
		return
	}
	ch <- out
}

var _ ports.ResultSink = (*Registry)(nil)
