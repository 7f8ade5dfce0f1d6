// Package controller wires the HTTP API of syncbridge.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"syncbridge/internal/controller/handlers"
	"syncbridge/internal/controller/middleware"

	"github.com/gorilla/mux"
)

// Options configures the server beyond its handlers.
type Options struct {
	// MetricsHandler is served on /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
	// SyncRateLimit is the per-client request rate of POST /sync. Zero disables limiting.
	SyncRateLimit float64
	SyncRateBurst int
	// TrustedProxies may set X-Forwarded-For for rate limiting.
	TrustedProxies []netip.Prefix
}

// Server is the HTTP server for the sync API.
type Server struct {
	httpServer *http.Server
}

// New creates a new API server.
func New(addr string, h *handlers.Handlers, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(h, opts),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// NewRouter registers every route. Route names label request logs and metrics.
func NewRouter(h *handlers.Handlers, opts Options) *mux.Router {
	limiter := middleware.NewRateLimiter(
		middleware.WithLimit(opts.SyncRateLimit, opts.SyncRateBurst),
		middleware.WithTrustedProxies(opts.TrustedProxies...),
	)

	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Monitor(opts.Logger))

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Handle("/sync", limiter.Middleware()(http.HandlerFunc(h.Sync))).
		Methods(http.MethodPost).Name("sync.operation")
	v1.HandleFunc("/sync/stats", h.Stats).Methods(http.MethodGet).Name("sync.stats")
	v1.HandleFunc("/sync-history/{id}", h.GetHistory).Methods(http.MethodGet).Name("sync_history.get")
	v1.HandleFunc("/sync-history/{id}", h.DeleteHistory).Methods(http.MethodDelete).Name("sync_history.delete")
	v1.HandleFunc("/sync-history/{id}/retry", h.RetryHistory).Methods(http.MethodPost).Name("sync_history.retry")
	v1.HandleFunc("/health", h.Healthz).Methods(http.MethodGet).Name("health.check")

	r.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet).Name("health.ready")
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler).Methods(http.MethodGet)
	}
	return r
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
