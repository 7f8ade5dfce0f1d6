package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"syncbridge/pkg/api"
)

// SyncClient handles API calls to the syncbridge server.
type SyncClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSyncClient creates a new client with the given base URL.
func NewSyncClient(baseURL string) *SyncClient {
	return &SyncClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
	// Errors holds the per-field messages of a validation failure.
	Errors map[string]string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	fields := make([]string, 0, len(e.Errors))
	for f, msg := range e.Errors {
		fields = append(fields, f+": "+msg)
	}
	return fmt.Sprintf("API error (%d): %s (%s)", e.StatusCode, e.Message, strings.Join(fields, "; "))
}

// do sends a request and decodes the data field of the success envelope into out.
func (c *SyncClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var envelope api.ErrorResponse
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.Errors = envelope.Errors
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope api.Response[json.RawMessage]
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// Sync sends POST /api/v1/sync.
func (c *SyncClient) Sync(model string, data []json.RawMessage) (*api.SyncResponse, error) {
	var result api.SyncResponse
	if err := c.do(http.MethodPost, "/api/v1/sync", api.SyncRequest{Model: model, Data: data}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetHistory sends GET /api/v1/sync-history/{id}.
func (c *SyncClient) GetHistory(id string) (*api.HistoryEntry, error) {
	var result api.HistoryEntry
	if err := c.do(http.MethodGet, "/api/v1/sync-history/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RetryHistory sends POST /api/v1/sync-history/{id}/retry.
func (c *SyncClient) RetryHistory(id string) (*api.HistoryEntry, error) {
	var result api.HistoryEntry
	if err := c.do(http.MethodPost, "/api/v1/sync-history/"+id+"/retry", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteHistory sends DELETE /api/v1/sync-history/{id}.
func (c *SyncClient) DeleteHistory(id string) error {
	return c.do(http.MethodDelete, "/api/v1/sync-history/"+id, nil, nil)
}

// Stats sends GET /api/v1/sync/stats.
func (c *SyncClient) Stats() (api.Stats, error) {
	var result api.Stats
	if err := c.do(http.MethodGet, "/api/v1/sync/stats", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
