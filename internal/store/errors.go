package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a ledger entry is not in the status an update requires.
	ErrInvalidTransition = errors.New("invalid ledger status transition")
)

// ConstraintKind classifies integrity violations raised by the database.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintOther      ConstraintKind = "other"
)

// ConstraintError is an integrity violation reported by the database.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	// Field is the offending column when it can be derived from the driver error.
	Field string
	Err   error
}

func (e *ConstraintError) Error() string {
	switch e.Kind {
	case ConstraintUnique:
		if e.Field != "" {
			return fmt.Sprintf("Duplicate entry: field '%s' already exists", e.Field)
		}
		return "Duplicate entry detected"
	case ConstraintForeignKey, ConstraintOther:
		return "Data constraint violation"
	}
	return "Data constraint violation"
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// DuplicateField extracts the column name from a unique violation message.
// It understands the Postgres detail form `Key (email)=(a@b.c) already exists.`
// and the SQLite form `UNIQUE constraint failed: customers.email`.
func DuplicateField(msg string) string {
	if i := strings.Index(msg, "Key ("); i >= 0 {
		rest := msg[i+len("Key ("):]
		if j := strings.Index(rest, ")"); j > 0 {
			return strings.TrimSpace(strings.Split(rest[:j], ",")[0])
		}
	}
	lowered := strings.ToLower(msg)
	if i := strings.Index(lowered, "unique constraint failed:"); i >= 0 {
		cols := strings.TrimSpace(msg[i+len("unique constraint failed:"):])
		col := strings.TrimSpace(strings.Split(cols, ",")[0])
		if dot := strings.LastIndex(col, "."); dot >= 0 {
			col = col[dot+1:]
		}
		return col
	}
	return ""
}
