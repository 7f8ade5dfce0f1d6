package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations keeps every failure in the order it was found.
type Violations []Violation

// Add appends a failure for field.
func (v *Violations) Add(field, message string) {
	*v = append(*v, Violation{Field: field, Message: message})
}

// Err returns a ValidationError for item index, or nil when there are no violations.
func (v Violations) Err(index int) error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Index: index, Violations: v}
}

// ValidationError reports malformed envelopes, invalid items, derived value
// mismatches and illegal ledger transitions.
type ValidationError struct {
	// Index is the position of the offending item in the batch, or -1 when the
	// error is not about a single item.
	Index      int
	Violations Violations
}

// NewValidationError returns a ValidationError with a single violation.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Index: -1, Violations: Violations{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	msg := strings.Join(parts, "; ")
	if e.Index >= 0 {
		return fmt.Sprintf("validation failed for item %d: %s", e.Index, msg)
	}
	return "validation failed: " + msg
}

// First collapses the violations to the first message of each field.
func (e *ValidationError) First() map[string]string {
	out := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		if _, ok := out[v.Field]; !ok {
			out[v.Field] = v.Message
		}
	}
	return out
}

// Reason renders the collapsed violations as JSON for the ledger.
func (e *ValidationError) Reason() string {
	b, err := json.Marshal(e.First())
	if err != nil {
		return e.Error()
	}
	return string(b)
}
