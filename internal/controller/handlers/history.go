package handlers

import (
	"net/http"
	"strconv"

	"syncbridge/internal/store"
	"syncbridge/pkg/api"

	"github.com/gorilla/mux"
)

func toHistoryEntry(e *store.LedgerEntry) api.HistoryEntry {
	return api.HistoryEntry{
		ID:            e.ID,
		Payload:       e.Payload,
		Status:        string(e.Status),
		FailureReason: e.FailureReason,
		Retries:       e.Retries,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// historyID parses the {id} path variable. An id that is not a number can
// never match an entry, so it is reported as not found.
func historyID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetHistory handles GET /api/v1/sync-history/{id}.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := historyID(r)
	if !ok {
		h.httpError(w, msgNotFound, http.StatusNotFound)
		return
	}

	entry, err := h.history.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok200(h, w, "Sync history retrieved successfully", toHistoryEntry(entry))
}

// DeleteHistory handles DELETE /api/v1/sync-history/{id}.
func (h *Handlers) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := historyID(r)
	if !ok {
		h.httpError(w, msgNotFound, http.StatusNotFound)
		return
	}

	if err := h.history.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryHistory handles POST /api/v1/sync-history/{id}/retry.
// Only failed entries can be retried.
func (h *Handlers) RetryHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := historyID(r)
	if !ok {
		h.httpError(w, msgNotFound, http.StatusNotFound)
		return
	}

	entry, err := h.history.Retry(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok200(h, w, "Sync history will be retried", toHistoryEntry(entry))
}

// Stats handles GET /api/v1/sync/stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make(api.Stats, len(stats.Counts)+1)
	for status, n := range stats.Counts {
		out[string(status)] = n
	}
	out["total"] = stats.Total
	ok200(h, w, "Sync stats retrieved successfully", out)
}
