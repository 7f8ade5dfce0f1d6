// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the server.
package api

import (
	"encoding/json"
	"time"
)

// Response is the envelope of every successful response.
type Response[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// ErrorResponse is the envelope of every error response.
// Errors holds the first message per offending field for validation failures.
type ErrorResponse struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SyncRequest is the request body of POST /api/v1/sync.
type SyncRequest struct {
	Model string            `json:"model"`
	Data  []json.RawMessage `json:"data"`
}

// SyncResult is the outcome of one item, "created" or "updated".
type SyncResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// SyncResponse lists one result per item in request order.
type SyncResponse struct {
	Results []SyncResult `json:"results"`
}

// HistoryEntry is a sync history (ledger) entry.
type HistoryEntry struct {
	ID            int64     `json:"id"`
	Payload       string    `json:"payload" yaml:"payload"`
	Status        string    `json:"status"`
	FailureReason *string   `json:"failure_reason" yaml:"failure_reason"`
	Retries       int       `json:"retries"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// Stats maps each ledger status present to its count, plus "total".
type Stats map[string]int64

// HealthResult reports whether the database accepted a read and a write.
type HealthResult struct {
	Read      bool      `json:"read"`
	Write     bool      `json:"write"`
	Timestamp time.Time `json:"timestamp"`
}
