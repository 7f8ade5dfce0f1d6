package postgres

import (
	"database/sql"
	"errors"

	"syncbridge/internal/store"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes for integrity violations.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// translateError maps driver errors onto store errors.
// Anything unrecognised (timeouts, deadlocks, serialization failures) is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case codeUniqueViolation:
		field := store.DuplicateField(pqErr.Detail)
		if field == "" {
			field = pqErr.Column
		}
		return &store.ConstraintError{
			Kind:       store.ConstraintUnique,
			Constraint: pqErr.Constraint,
			Field:      field,
			Err:        err,
		}
	case codeForeignKeyViolation:
		return &store.ConstraintError{
			Kind:       store.ConstraintForeignKey,
			Constraint: pqErr.Constraint,
			Field:      store.DuplicateField(pqErr.Detail),
			Err:        err,
		}
	case codeCheckViolation, codeNotNullViolation:
		return &store.ConstraintError{
			Kind:       store.ConstraintOther,
			Constraint: pqErr.Constraint,
			Field:      pqErr.Column,
			Err:        err,
		}
	}
	return err
}
