package store

import (
	"context"
	"database/sql"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// EntityStore persists the synced entity kinds.
// Get methods return ErrNotFound when no row has the given id and lock the row
// for the rest of the transaction.
type EntityStore interface {
	GetCustomer(ctx context.Context, tx DBTransaction, id int64) (*Customer, error)
	CreateCustomer(ctx context.Context, tx DBTransaction, c *Customer) error
	UpdateCustomer(ctx context.Context, tx DBTransaction, c *Customer) error
	CustomerExists(ctx context.Context, tx DBTransaction, id int64) (bool, error)

	GetProduct(ctx context.Context, tx DBTransaction, id int64) (*Product, error)
	CreateProduct(ctx context.Context, tx DBTransaction, p *Product) error
	UpdateProduct(ctx context.Context, tx DBTransaction, p *Product) error
	ProductExists(ctx context.Context, tx DBTransaction, id int64) (bool, error)

	// GetOrder loads the order and its items.
	GetOrder(ctx context.Context, tx DBTransaction, id int64) (*Order, error)
	// CreateOrder inserts the order and bulk-inserts o.Items.
	CreateOrder(ctx context.Context, tx DBTransaction, o *Order) error
	// UpdateOrder writes the order columns only.
	UpdateOrder(ctx context.Context, tx DBTransaction, o *Order) error
	// ReplaceOrderItems deletes every item of the order and inserts items.
	ReplaceOrderItems(ctx context.Context, tx DBTransaction, orderID int64, items []OrderItem) error

	GetEmployee(ctx context.Context, tx DBTransaction, id int64) (*Employee, error)
	CreateEmployee(ctx context.Context, tx DBTransaction, e *Employee) error
	UpdateEmployee(ctx context.Context, tx DBTransaction, e *Employee) error
}

// LedgerStore persists sync history entries.
type LedgerStore interface {
	// CreateLedgerEntry inserts a pending_retry entry holding payload.
	CreateLedgerEntry(ctx context.Context, payload string) (*LedgerEntry, error)

	// FinishLedgerEntry moves a pending_retry entry to status.
	// Returns ErrInvalidTransition if the entry is no longer pending.
	FinishLedgerEntry(ctx context.Context, id int64, status SyncStatus, reason *string) error

	// RetryLedgerEntry moves a failed entry back to pending_retry and bumps its retry counter.
	// Returns ErrNotFound for unknown ids and ErrInvalidTransition when the entry is not failed.
	RetryLedgerEntry(ctx context.Context, id int64) (*LedgerEntry, error)

	GetLedgerEntry(ctx context.Context, id int64) (*LedgerEntry, error)
	DeleteLedgerEntry(ctx context.Context, id int64) error

	// CountLedgerEntries returns the number of entries per status.
	// Statuses without entries are absent from the map.
	CountLedgerEntries(ctx context.Context) (map[SyncStatus]int64, error)
}
