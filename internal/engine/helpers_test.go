package engine

import (
	"bytes"
	"encoding/json"
	"strconv"
	"testing"
)

// items decodes a JSON array the way the HTTP layer does.
func items(t *testing.T, raw string) []Item {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()
	var out []Item
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return out
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
