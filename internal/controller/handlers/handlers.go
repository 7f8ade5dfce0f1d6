// Package handlers contains HTTP handlers for the syncbridge API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"syncbridge/internal/engine"
	"syncbridge/internal/ledger"
	"syncbridge/internal/logger"
	"syncbridge/internal/store"
	"syncbridge/pkg/api"
)

const (
	msgValidationFailed = "Validation failed for one of the items in the data array."
	msgNotFound         = "Not found."
	msgInternal         = "Internal Server Error"
)

// Syncer applies a sync batch.
type Syncer interface {
	Sync(ctx context.Context, model string, items []engine.Item) ([]engine.Result, error)
}

// History reads and manages sync history entries.
type History interface {
	Get(ctx context.Context, id int64) (*store.LedgerEntry, error)
	Delete(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64) (*store.LedgerEntry, error)
	Stats(ctx context.Context) (ledger.Stats, error)
}

// Prober checks that the database is reachable and writable.
type Prober interface {
	Ping(ctx context.Context) error
	ProbeCustomers(ctx context.Context) error
	ProbeCustomerWrite(ctx context.Context, email string) error
}

// Deps are the collaborators of the handlers.
type Deps struct {
	Syncer  Syncer
	History History
	Prober  Prober
	Logger  *slog.Logger
	// MaxBodyBytes bounds request bodies; zero means 10 MiB.
	MaxBodyBytes int64
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	syncer       Syncer
	history      History
	prober       Prober
	logger       *slog.Logger
	maxBodyBytes int64
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	h := &Handlers{
		syncer:       d.Syncer,
		history:      d.History,
		prober:       d.Prober,
		logger:       d.Logger,
		maxBodyBytes: d.MaxBodyBytes,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = 10 << 20
	}
	return h
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// ok200 writes the success envelope.
func ok200[T any](h *Handlers, w http.ResponseWriter, message string, data T) {
	h.respondJson(w, http.StatusOK, api.Response[T]{Status: http.StatusOK, Message: message, Data: data})
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{Status: code, Message: message})
}

// writeError maps domain errors to HTTP responses. Unknown errors are logged
// and reported as a generic 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *engine.ValidationError
	var cerr *store.ConstraintError

	switch {
	case errors.As(err, &verr):
		h.respondJson(w, http.StatusBadRequest, api.ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: msgValidationFailed,
			Errors:  verr.First(),
		})
	case errors.As(err, &cerr):
		h.httpError(w, cerr.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrNotFound):
		h.httpError(w, msgNotFound, http.StatusNotFound)
	default:
		logger.FromContext(r.Context(), h.logger).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.httpError(w, msgInternal, http.StatusInternalServerError)
	}
}
