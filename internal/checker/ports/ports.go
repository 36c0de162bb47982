// Package ports defines the interfaces shared by the checker layers.
// The browser provider, the cache middleware and the service all speak
// StatusProvider upward and ResultSink downward so they compose transparently.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks StatusProvider,ResultSink

import (
	"context"

	"docstatus/internal/checker/models"
)

// ResultSink receives exactly one outcome per query: a status or an error.
type ResultSink interface {
	// OnStatus handles a successful lookup.
	OnStatus(reqID models.RequestID, status models.DocumentStatus)

	// OnError handles a failed lookup.
	OnError(reqID models.RequestID, err *models.QueryError)
}

// StatusProvider schedules document status lookups. Results are delivered
// through the registered ResultSink, never through Query's return.
type StatusProvider interface {
	// SetResultSink registers the downstream consumer. Last writer wins.
	SetResultSink(sink ResultSink)

	// Query schedules a lookup for ref under reqID.
	Query(ctx context.Context, reqID models.RequestID, ref models.DocumentReference)

	// Dispose frees all allocated resources. Safe to call more than once.
	Dispose(ctx context.Context) error
}
