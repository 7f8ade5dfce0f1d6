package postgres

import (
	"context"
	"errors"

	"syncbridge/internal/store"
)

const ledgerColumns = "id, payload, status, failure_reason, retries, created_at, updated_at"

func scanLedgerEntry(row interface{ Scan(...interface{}) error }) (*store.LedgerEntry, error) {
	var e store.LedgerEntry
	if err := row.Scan(&e.ID, &e.Payload, &e.Status, &e.FailureReason, &e.Retries, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return &e, nil
}

// CreateLedgerEntry inserts a pending_retry entry. It runs outside any batch
// transaction so the record survives a rolled back sync.
func (s *Store) CreateLedgerEntry(ctx context.Context, payload string) (*store.LedgerEntry, error) {
	query := `
		INSERT INTO sync_history (payload, status, retries, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		RETURNING ` + ledgerColumns

	return scanLedgerEntry(s.db.QueryRowContext(ctx, query, payload, store.SyncStatusPendingRetry))
}

// FinishLedgerEntry records the outcome of a pending entry.
func (s *Store) FinishLedgerEntry(ctx context.Context, id int64, status store.SyncStatus, reason *string) error {
	query := `
		UPDATE sync_history
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	res, err := s.db.ExecContext(ctx, query, status, reason, id, store.SyncStatusPendingRetry)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetLedgerEntry(ctx, id); err != nil {
			return err
		}
		return store.ErrInvalidTransition
	}
	return nil
}

// RetryLedgerEntry moves a failed entry back to pending_retry in one conditional
// statement so two concurrent retries cannot both succeed.
func (s *Store) RetryLedgerEntry(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	query := `
		UPDATE sync_history
		SET status = $1, retries = retries + 1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + ledgerColumns

	entry, err := scanLedgerEntry(s.db.QueryRowContext(ctx, query, store.SyncStatusPendingRetry, id, store.SyncStatusFailed))
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// Nothing updated: tell an unknown id apart from a non-failed entry.
	if _, err := s.GetLedgerEntry(ctx, id); err != nil {
		return nil, err
	}
	return nil, store.ErrInvalidTransition
}

// GetLedgerEntry returns a single entry.
func (s *Store) GetLedgerEntry(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	query := "SELECT " + ledgerColumns + " FROM sync_history WHERE id = $1"
	return scanLedgerEntry(s.db.QueryRowContext(ctx, query, id))
}

// DeleteLedgerEntry removes an entry. Administrative use only.
func (s *Store) DeleteLedgerEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sync_history WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CountLedgerEntries groups entries by status.
func (s *Store) CountLedgerEntries(ctx context.Context) (map[store.SyncStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_history GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[store.SyncStatus]int64)
	for rows.Next() {
		var status store.SyncStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
