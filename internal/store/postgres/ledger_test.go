package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"syncbridge/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
)

var ledgerRowColumns = []string{"id", "payload", "status", "failure_reason", "retries", "created_at", "updated_at"}

func TestCreateLedgerEntry(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO sync_history`).
		WithArgs(`[{"email":"a@example.com"}]`, store.SyncStatusPendingRetry).
		WillReturnRows(sqlmock.NewRows(ledgerRowColumns).
			AddRow(1, `[{"email":"a@example.com"}]`, "pending_retry", nil, 0, now, now))

	e, err := s.CreateLedgerEntry(context.Background(), `[{"email":"a@example.com"}]`)
	if err != nil {
		t.Fatalf("CreateLedgerEntry failed: %v", err)
	}
	if e.ID != 1 || e.Status != store.SyncStatusPendingRetry || e.FailureReason != nil {
		t.Errorf("unexpected entry: %+v", e)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFinishLedgerEntry(t *testing.T) {
	reason := "item 0: boom"

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "Pending",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE sync_history`).
					WithArgs(store.SyncStatusFailed, reason, int64(1), store.SyncStatusPendingRetry).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "AlreadyFinished",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE sync_history`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`FROM sync_history WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows(ledgerRowColumns).
						AddRow(1, "[]", "successful", nil, 0, time.Now(), time.Now()))
			},
			wantErr: store.ErrInvalidTransition,
		},
		{
			name: "Missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE sync_history`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`FROM sync_history WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows(ledgerRowColumns))
			},
			wantErr: store.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			defer s.db.Close()
			tt.setup(mock)

			err := s.FinishLedgerEntry(context.Background(), 1, store.SyncStatusFailed, &reason)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestRetryLedgerEntry(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "Failed",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE sync_history\s+SET status = \$1, retries = retries \+ 1`).
					WithArgs(store.SyncStatusPendingRetry, int64(9), store.SyncStatusFailed).
					WillReturnRows(sqlmock.NewRows(ledgerRowColumns).
						AddRow(9, "[]", "pending_retry", "boom", 1, time.Now(), time.Now()))
			},
		},
		{
			name: "NotFailed",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE sync_history`).
					WillReturnRows(sqlmock.NewRows(ledgerRowColumns))
				mock.ExpectQuery(`FROM sync_history WHERE id = \$1`).
					WithArgs(int64(9)).
					WillReturnRows(sqlmock.NewRows(ledgerRowColumns).
						AddRow(9, "[]", "successful", nil, 0, time.Now(), time.Now()))
			},
			wantErr: store.ErrInvalidTransition,
		},
		{
			name: "Missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE sync_history`).
					WillReturnRows(sqlmock.NewRows(ledgerRowColumns))
				mock.ExpectQuery(`FROM sync_history WHERE id = \$1`).
					WithArgs(int64(9)).
					WillReturnRows(sqlmock.NewRows(ledgerRowColumns))
			},
			wantErr: store.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			defer s.db.Close()
			tt.setup(mock)

			e, err := s.RetryLedgerEntry(context.Background(), 9)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Retries != 1 || e.Status != store.SyncStatusPendingRetry {
				t.Errorf("unexpected entry: %+v", e)
			}
			if e.FailureReason == nil || *e.FailureReason != "boom" {
				t.Errorf("failure reason should be kept, got %v", e.FailureReason)
			}
		})
	}
}

func TestDeleteLedgerEntry(t *testing.T) {
	t.Run("Deleted", func(t *testing.T) {
		s, mock := newMockStore(t)
		defer s.db.Close()

		mock.ExpectExec(`DELETE FROM sync_history WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := s.DeleteLedgerEntry(context.Background(), 3); err != nil {
			t.Fatalf("DeleteLedgerEntry failed: %v", err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		s, mock := newMockStore(t)
		defer s.db.Close()

		mock.ExpectExec(`DELETE FROM sync_history WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		if err := s.DeleteLedgerEntry(context.Background(), 3); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCountLedgerEntries(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM sync_history GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("successful", 4).
			AddRow("failed", 2))

	counts, err := s.CountLedgerEntries(context.Background())
	if err != nil {
		t.Fatalf("CountLedgerEntries failed: %v", err)
	}

	if len(counts) != 2 {
		t.Fatalf("got %d statuses, want 2", len(counts))
	}
	if counts[store.SyncStatusSuccessful] != 4 || counts[store.SyncStatusFailed] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if _, ok := counts[store.SyncStatusInvalid]; ok {
		t.Error("statuses without entries should be absent")
	}
}
