package postgres

import (
	"context"
	"errors"

	"syncbridge/internal/store"
)

// GetCustomer loads a customer and locks its row.
func (s *Store) GetCustomer(ctx context.Context, tx store.DBTransaction, id int64) (*store.Customer, error) {
	query := `
		SELECT id, email, first_name, last_name, default_currency, created_at, updated_at
		FROM customers WHERE id = $1
		FOR UPDATE
	`

	var c store.Customer
	err := s.getExecutor(tx).QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.DefaultCurrency, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	return &c, nil
}

// CreateCustomer inserts c and fills in its id and timestamps.
func (s *Store) CreateCustomer(ctx context.Context, tx store.DBTransaction, c *store.Customer) error {
	query := `
		INSERT INTO customers (email, first_name, last_name, default_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		c.Email, c.FirstName, c.LastName, c.DefaultCurrency,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translateError(err)
}

// UpdateCustomer writes every column of c.
func (s *Store) UpdateCustomer(ctx context.Context, tx store.DBTransaction, c *store.Customer) error {
	query := `
		UPDATE customers
		SET email = $1, first_name = $2, last_name = $3, default_currency = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		c.Email, c.FirstName, c.LastName, c.DefaultCurrency, c.ID,
	).Scan(&c.UpdatedAt)
	return translateError(err)
}

// CustomerExists reports whether a customer with id exists.
func (s *Store) CustomerExists(ctx context.Context, tx store.DBTransaction, id int64) (bool, error) {
	var exists bool
	err := s.getExecutor(tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ProbeCustomers reads one customer row. Used by the health check.
func (s *Store) ProbeCustomers(ctx context.Context) error {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM customers ORDER BY id LIMIT 1`).Scan(&id)
	if err != nil && !errors.Is(translateError(err), store.ErrNotFound) {
		return err
	}
	return nil
}

// ProbeCustomerWrite inserts and deletes a throwaway customer inside a rolled back transaction.
func (s *Store) ProbeCustomerWrite(ctx context.Context, email string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c := store.Customer{Email: email, FirstName: "Health", LastName: "Check", DefaultCurrency: store.DefaultCurrency}
	if err := s.CreateCustomer(ctx, tx, &c); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, c.ID); err != nil {
		return err
	}
	return nil
}
