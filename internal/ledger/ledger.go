// Package ledger keeps the history of sync attempts and their lifecycle.
//
// An entry starts as pending_retry, is finalized exactly once as successful,
// failed or invalid, and only a failed entry may be moved back to
// pending_retry by a retry.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"syncbridge/internal/engine"
	"syncbridge/internal/store"
)

// MaxReasonLength bounds the stored failure reason, in characters.
const MaxReasonLength = 500

const msgRetryNotFailed = "Only failed syncs can be retried."

// Ledger records sync attempts.
type Ledger struct {
	store store.LedgerStore
}

var _ engine.Recorder = (*Ledger)(nil)

func New(s store.LedgerStore) *Ledger {
	return &Ledger{store: s}
}

// Record stores the raw payload of a new attempt as pending_retry.
func (l *Ledger) Record(ctx context.Context, payload string) (*store.LedgerEntry, error) {
	entry, err := l.store.CreateLedgerEntry(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create ledger entry: %w", err)
	}
	return entry, nil
}

// Finalize moves a pending entry to a terminal status. The reason is
// truncated to MaxReasonLength characters and stored only when non-empty.
func (l *Ledger) Finalize(ctx context.Context, id int64, status store.SyncStatus, reason string) error {
	switch status {
	case store.SyncStatusSuccessful, store.SyncStatusFailed, store.SyncStatusInvalid:
	case store.SyncStatusPendingRetry:
		return fmt.Errorf("finalize entry %d: %q is not a final status", id, status)
	default:
		return fmt.Errorf("finalize entry %d: unknown status %q", id, status)
	}

	var stored *string
	if reason != "" {
		r := Truncate(reason, MaxReasonLength)
		stored = &r
	}

	if err := l.store.FinishLedgerEntry(ctx, id, status, stored); err != nil {
		return fmt.Errorf("finalize entry %d: %w", id, err)
	}
	return nil
}

// Retry moves a failed entry back to pending_retry and increments its retry
// counter. Any other status is rejected with a ValidationError. The batch is
// not re-executed.
func (l *Ledger) Retry(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	entry, err := l.store.RetryLedgerEntry(ctx, id)
	if errors.Is(err, store.ErrInvalidTransition) {
		return nil, engine.NewValidationError("status", msgRetryNotFailed)
	}
	if err != nil {
		return nil, fmt.Errorf("retry entry %d: %w", id, err)
	}
	return entry, nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (*store.LedgerEntry, error) {
	entry, err := l.store.GetLedgerEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return entry, nil
}

// Delete removes an entry regardless of its status.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	if err := l.store.DeleteLedgerEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

// Stats counts entries per status. Statuses without entries are absent.
type Stats struct {
	Counts map[store.SyncStatus]int64
	Total  int64
}

// MarshalJSON renders the counts flat next to "total", e.g.
// {"successful": 3, "failed": 1, "invalid": 1, "total": 5}.
func (s Stats) MarshalJSON() ([]byte, error) {
	out := make(map[string]int64, len(s.Counts)+1)
	for status, n := range s.Counts {
		out[string(status)] = n
	}
	out["total"] = s.Total
	return json.Marshal(out)
}

func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	counts, err := l.store.CountLedgerEntries(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count entries: %w", err)
	}

	st := Stats{Counts: make(map[store.SyncStatus]int64, len(counts))}
	for status, n := range counts {
		if n == 0 {
			continue
		}
		st.Counts[status] = n
		st.Total += n
	}
	return st, nil
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
