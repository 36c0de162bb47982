package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docstatus/internal/checker/metrics"
	"docstatus/internal/platform/middleware"
	"docstatus/pkg/platform/httputil"
	"docstatus/pkg/platform/middleware/apitoken"
	"docstatus/pkg/platform/middleware/metadata"
	"docstatus/pkg/platform/middleware/requesttime"
)

// RouterConfig carries the pieces the router mounts next to the handler.
type RouterConfig struct {
	APIToken string
	Version  string
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// NewRouter assembles the public HTTP surface.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = h.logger
	}
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		metadata.ClientMetadata,
		requesttime.WithClock(h.cfg.Clock),
		middleware.Logger(cfg.Logger, cfg.Metrics),
		chimw.Recoverer,
	)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, PingResponse{OK: true, Version: cfg.Version})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(apitoken.Require(cfg.APIToken, cfg.Logger))
		h.Register(r)
	})
	return r
}
