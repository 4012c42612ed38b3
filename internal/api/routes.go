package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes installs the API on mux and returns it wrapped in the
// standard middleware. Metrics are served from gatherer; a nil gatherer
// means prometheus.DefaultGatherer.
func RegisterRoutes(mux *http.ServeMux, h *Handler, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// KV APIs
	mux.HandleFunc("PUT /kv/{key...}", h.SetKey)
	mux.HandleFunc("GET /kv/{key...}", h.GetKey)
	mux.HandleFunc("DELETE /kv/{key...}", h.DeleteKey)

	// Admin APIs
	mux.HandleFunc("GET /admin/keys", h.ListKeys)
	mux.HandleFunc("POST /admin/cleanup", h.Cleanup)
	mux.HandleFunc("GET /admin/stats", h.GetStats)

	// Observability APIs
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", h.GetHealth)

	return Chain(
		mux,
		RecoveryMiddleware(h.logger),
		LoggingMiddleware(h.logger),
	)
}
