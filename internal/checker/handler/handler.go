// Package handler exposes the document checker over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"docstatus/internal/checker/models"
	"docstatus/internal/checker/waiter"
	"docstatus/pkg/platform/httputil"
	"docstatus/pkg/requestcontext"
)

const (
	maxBodyBytes          = 4 << 10
	defaultRequestTimeout = 15 * time.Second
)

// Service schedules status lookups; results arrive through the waiter
// registry the service was built with.
type Service interface {
	Query(ctx context.Context, reqID models.RequestID, ref models.DocumentReference)
}

type Config struct {
	// RequestTimeout bounds how long a request waits for its result.
	RequestTimeout time.Duration
	// ManualCheckURL is suggested to users when the lookup fails on our side.
	ManualCheckURL string
	// Clock stands in for the wall clock when no request time is pinned.
	Clock clock.PassiveClock
}

// Handler wires status endpoints to the checker service.
type Handler struct {
	service Service
	waiters *waiter.Registry
	cfg     Config
	logger  *slog.Logger
}

// New constructs a status handler with its dependencies.
func New(service Service, waiters *waiter.Registry, cfg Config, logger *slog.Logger) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	return &Handler{
		service: service,
		waiters: waiters,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register mounts status endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/status", h.HandleStatus)
}

// HandleStatus handles POST /v1/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start, pinned := requestcontext.Pinned(ctx)
	if !pinned {
		start = h.cfg.Clock.Now()
	}

	req, err := httputil.DecodeJSON[StatusRequest](r, maxBodyBytes)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error:            "bad_request",
			ErrorDescription: err.Error(),
		})
		return
	}

	ref, ok := models.ParseDocumentID(req.Document)
	if !ok {
		h.logger.InfoContext(ctx, "unrecognized document input",
			"request_id", requestID,
			"input_length", len(req.Document),
		)
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{
			Error:            "unrecognized_document",
			ErrorDescription: "The document number was not recognized. " + UsageExamples,
		})
		return
	}

	reqID := models.RequestID(req.RequestID)
	if reqID == "" {
		reqID = models.RequestID(requestID)
	}
	if reqID == "" {
		reqID = models.RequestID(uuid.NewString())
	}

	results, cancel, err := h.waiters.Register(reqID)
	if err != nil {
		h.logger.WarnContext(ctx, "duplicate status request",
			"request_id", requestID,
			"query_id", reqID,
		)
		h.writeQueryError(w, models.NewQueryError(models.ErrorPoolExhausted, "another request for this id is already in progress"))
		return
	}
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancelTimeout()
	h.service.Query(ctx, reqID, ref)

	select {
	case out := <-results:
		if out.Err != nil {
			h.writeQueryError(w, out.Err)
			return
		}
		h.logger.InfoContext(ctx, "document status resolved",
			"request_id", requestID,
			"query_id", reqID,
			"document_kind", ref.Kind,
			"status_code", int(out.Status.Code),
			"duration_ms", h.cfg.Clock.Since(start).Milliseconds(),
		)
		httputil.WriteJSON(w, http.StatusOK, FromStatus(reqID, start, out.Status))
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) && r.Context().Err() != nil {
			// Client went away.
			return
		}
		h.writeQueryError(w, models.NewQueryError(models.ErrorTimeout, "no result before the request deadline"))
	}
}

func (h *Handler) writeQueryError(w http.ResponseWriter, qerr *models.QueryError) {
	httputil.WriteError(w, statusFor(qerr.Kind), httputil.ErrorResponse{
		Error:            qerr.Kind.String(),
		ErrorDescription: DescribeError(qerr, h.cfg.ManualCheckURL),
		Retryable:        qerr.Retryable(),
	})
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.ErrorPoolExhausted:
		return http.StatusTooManyRequests
	case models.ErrorTimeout:
		return http.StatusGatewayTimeout
	case models.ErrorTransportFailure:
		return http.StatusBadGateway
	case models.ErrorRemoteRejected:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
