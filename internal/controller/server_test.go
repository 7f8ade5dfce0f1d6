package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"syncbridge/internal/controller/handlers"
	"syncbridge/internal/engine"
	"syncbridge/internal/ledger"
	"syncbridge/internal/store"
)

type stubSyncer struct{}

func (stubSyncer) Sync(ctx context.Context, model string, items []engine.Item) ([]engine.Result, error) {
	out := make([]engine.Result, len(items))
	for i := range items {
		out[i] = engine.Result{ID: int64(i + 1), Status: "created"}
	}
	return out, nil
}

type stubHistory struct{}

func (stubHistory) Get(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	return &store.LedgerEntry{ID: id, Status: store.SyncStatusSuccessful}, nil
}

func (stubHistory) Delete(ctx context.Context, id int64) error { return nil }

func (stubHistory) Retry(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	return &store.LedgerEntry{ID: id, Status: store.SyncStatusPendingRetry, Retries: 1}, nil
}

func (stubHistory) Stats(ctx context.Context) (ledger.Stats, error) {
	return ledger.Stats{Counts: map[store.SyncStatus]int64{}}, nil
}

type stubProber struct{}

func (stubProber) Ping(ctx context.Context) error { return nil }
func (stubProber) ProbeCustomers(ctx context.Context) error { return nil }
func (stubProber) ProbeCustomerWrite(ctx context.Context, email string) error {
	return nil
}

func newTestRouter(opts Options) http.Handler {
	h := handlers.New(handlers.Deps{Syncer: stubSyncer{}, History: stubHistory{}, Prober: stubProber{}})
	return NewRouter(h, opts)
}

func TestRouter_Routes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})
	router := newTestRouter(Options{MetricsHandler: metrics})

	tests := []struct {
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{http.MethodPost, "/api/v1/sync", `{"model":"customers","data":[{}]}`, http.StatusOK},
		{http.MethodGet, "/api/v1/sync/stats", "", http.StatusOK},
		{http.MethodGet, "/api/v1/sync-history/1", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/sync-history/1", "", http.StatusNoContent},
		{http.MethodPost, "/api/v1/sync-history/1/retry", "", http.StatusOK},
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/sync", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("got status %d, want %d (body: %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}
}

func TestRouter_RateLimitsSyncOnly(t *testing.T) {
	router := newTestRouter(Options{SyncRateLimit: 1, SyncRateBurst: 1})

	send := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.RemoteAddr = "10.1.1.1:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	body := `{"model":"customers","data":[{}]}`
	if code := send(http.MethodPost, "/api/v1/sync", body); code != http.StatusOK {
		t.Fatalf("first sync: got %d", code)
	}
	if code := send(http.MethodPost, "/api/v1/sync", body); code != http.StatusTooManyRequests {
		t.Errorf("second sync: got %d, want 429", code)
	}
	if code := send(http.MethodGet, "/api/v1/sync/stats", ""); code != http.StatusOK {
		t.Errorf("stats should not be limited: got %d", code)
	}
}

func TestRouter_EchoesRequestID(t *testing.T) {
	router := newTestRouter(Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "trace-me" {
		t.Errorf("got X-Request-ID %q, want trace-me", got)
	}
}
