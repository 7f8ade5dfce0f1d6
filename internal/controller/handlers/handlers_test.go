package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"syncbridge/internal/engine"
	"syncbridge/internal/ledger"
	"syncbridge/internal/store"

	"github.com/gorilla/mux"
)

// Mock Syncer
type mockSyncer struct {
	syncResp []engine.Result
	syncErr  error

	// Spies (to verify arguments passed by handlers)
	capturedModel string
	capturedItems []engine.Item
	calls         int
}

func (m *mockSyncer) Sync(ctx context.Context, model string, items []engine.Item) ([]engine.Result, error) {
	m.calls++
	m.capturedModel = model
	m.capturedItems = items
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return m.syncResp, nil
}

// Mock History
type mockHistory struct {
	getResp   *store.LedgerEntry
	getErr    error
	deleteErr error
	retryResp *store.LedgerEntry
	retryErr  error
	statsResp ledger.Stats
	statsErr  error

	capturedID int64
}

func (m *mockHistory) Get(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	m.capturedID = id
	return m.getResp, m.getErr
}

func (m *mockHistory) Delete(ctx context.Context, id int64) error {
	m.capturedID = id
	return m.deleteErr
}

func (m *mockHistory) Retry(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	m.capturedID = id
	return m.retryResp, m.retryErr
}

func (m *mockHistory) Stats(ctx context.Context) (ledger.Stats, error) {
	return m.statsResp, m.statsErr
}

// Mock Prober
type mockProber struct {
	pingErr  error
	readErr  error
	writeErr error

	capturedEmail string
}

func (m *mockProber) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockProber) ProbeCustomers(ctx context.Context) error { return m.readErr }

func (m *mockProber) ProbeCustomerWrite(ctx context.Context, email string) error {
	m.capturedEmail = email
	return m.writeErr
}

type mocks struct {
	syncer  *mockSyncer
	history *mockHistory
	prober  *mockProber
}

func newTestHandlers() (*Handlers, *mocks) {
	m := &mocks{syncer: &mockSyncer{}, history: &mockHistory{}, prober: &mockProber{}}
	h := New(Deps{Syncer: m.syncer, History: m.history, Prober: m.prober})
	return h, m
}

// serve routes req through a router so path variables are populated.
func serve(h *Handlers, method, pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc(pattern, handler).Methods(method)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func failedEntry(id int64) *store.LedgerEntry {
	reason := `{"amount":"mismatch"}`
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &store.LedgerEntry{
		ID:            id,
		Payload:       `[{"id":1}]`,
		Status:        store.SyncStatusFailed,
		FailureReason: &reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

var errDB = errors.New("connection reset")
