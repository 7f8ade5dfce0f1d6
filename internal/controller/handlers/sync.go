package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"syncbridge/internal/engine"
	"syncbridge/pkg/api"
)

// Sync handles POST /api/v1/sync.
// The body is {"model": "<kind>", "data": [{...}, ...]}.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.httpError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	model, items, err := decodeSyncRequest(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	results, err := h.syncer.Sync(ctx, model, items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := api.SyncResponse{Results: make([]api.SyncResult, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, api.SyncResult{ID: res.ID, Status: res.Status})
	}
	ok200(h, w, "Sync successful", resp)
}

// decodeSyncRequest checks the request envelope. Item contents are left to the engine.
func decodeSyncRequest(body []byte) (string, []engine.Item, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return "", nil, engine.NewValidationError("non_field_errors", "JSON parse error - "+err.Error())
	}
	envelope, isObject := raw.(map[string]any)
	if !isObject {
		return "", nil, engine.NewValidationError("non_field_errors",
			fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", engine.TypeName(raw)))
	}

	var v engine.Violations

	var model string
	switch m := envelope["model"].(type) {
	case nil:
		if _, present := envelope["model"]; present {
			v.Add("model", "This field may not be null.")
		} else {
			v.Add("model", "This field is required.")
		}
	case string:
		if m == "" {
			v.Add("model", "This field may not be blank.")
		}
		model = m
	default:
		v.Add("model", "Not a valid string.")
	}

	var items []engine.Item
	switch d := envelope["data"].(type) {
	case nil:
		if _, present := envelope["data"]; present {
			v.Add("data", "This field may not be null.")
		} else {
			v.Add("data", "This field is required.")
		}
	case []any:
		items = make([]engine.Item, 0, len(d))
		for _, el := range d {
			obj, isObj := el.(map[string]any)
			if !isObj {
				v.Add("data", fmt.Sprintf("Expected a dictionary of items but got type %q.", engine.TypeName(el)))
				break
			}
			items = append(items, engine.Item(obj))
		}
	default:
		v.Add("data", fmt.Sprintf("Expected a list of items but got type %q.", engine.TypeName(d)))
	}

	if err := v.Err(-1); err != nil {
		return "", nil, err
	}
	return model, items, nil
}
