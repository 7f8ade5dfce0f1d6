package cmd

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"syncbridge/pkg/api"
)

func historyEntry() api.HistoryEntry {
	reason := `{"amount":"Order amount must equal the sum of item prices"}`
	created := time.Now().Add(-2 * time.Hour)
	return api.HistoryEntry{
		ID:            42,
		Payload:       `[{"order_number":"A-1"}]`,
		Status:        "failed",
		FailureReason: &reason,
		Retries:       0,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestHistoryGetCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "Text",
			args:     []string{"history", "get", "42"},
			expected: []string{"Sync History Entry", "42", "failed", "Order amount must equal", "A-1"},
		},
		{
			name:     "JSON",
			args:     []string{"history", "get", "42", "-o", "json"},
			expected: []string{`"id": 42`, `"status": "failed"`},
		},
		{
			name:     "YAML",
			args:     []string{"history", "get", "42", "-o", "yaml"},
			expected: []string{"id: 42", "status: failed", "failure_reason:", "payload:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()

			newServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/api/v1/sync-history/42" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				writeEnvelope(w, "Sync history retrieved successfully", historyEntry())
			})

			output, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.expected {
				if !strings.Contains(output, want) {
					t.Errorf("expected %q in output, got: %s", want, output)
				}
			}
		})
	}
}

func TestHistoryGetCommand_NotFound(t *testing.T) {
	resetViper()

	newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.", nil)
	})

	output, err := execute(t, "history", "get", "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "API error (404): Not found.") {
		t.Errorf("expected 404 error, got: %s", output)
	}
}

func TestHistoryRetryCommand(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		expected string
	}{
		{
			name: "Success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/v1/sync-history/42/retry" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				e := historyEntry()
				e.Status = "pending_retry"
				e.Retries = 1
				writeEnvelope(w, "Sync history will be retried", e)
			},
			expected: "Entry 42 will be retried (retries: 1)",
		},
		{
			name: "Not Failed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusBadRequest, "Validation failed for one of the items in the data array.",
					map[string]string{"status": "Only failed syncs can be retried."})
			},
			expected: "status: Only failed syncs can be retried.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			newServer(t, tt.handler)

			output, err := execute(t, "history", "retry", "42")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(output, tt.expected) {
				t.Errorf("expected %q, got: %s", tt.expected, output)
			}
		})
	}
}

func TestHistoryDeleteCommand(t *testing.T) {
	resetViper()

	newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/sync-history/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	output, err := execute(t, "history", "delete", "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "Entry 7 deleted") {
		t.Errorf("expected confirmation, got: %s", output)
	}
}

func TestHistoryCommands_RequireID(t *testing.T) {
	for _, sub := range []string{"get", "retry", "delete"} {
		t.Run(sub, func(t *testing.T) {
			resetViper()
			if _, err := execute(t, "history", sub); err == nil {
				t.Errorf("expected error when no id provided to %s", sub)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("got %q, want abc...", got)
	}
}
