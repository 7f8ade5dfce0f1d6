package postgres

import (
	"context"
	"fmt"

	"syncbridge/internal/store"
)

// GetOrder loads an order with its items and locks the order row.
func (s *Store) GetOrder(ctx context.Context, tx store.DBTransaction, id int64) (*store.Order, error) {
	executor := s.getExecutor(tx)

	query := `
		SELECT id, order_number, customer_id, status, currency, amount, placed_at, updated_at
		FROM orders WHERE id = $1
		FOR UPDATE
	`

	var o store.Order
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.Currency, &o.Amount, &o.PlacedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	items, err := s.listOrderItems(ctx, executor, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (s *Store) listOrderItems(ctx context.Context, executor store.DBTransaction, orderID int64) ([]store.OrderItem, error) {
	rows, err := executor.QueryContext(ctx,
		`SELECT id, order_id, product_id, qty, unit_price FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []store.OrderItem{}
	for rows.Next() {
		var item store.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Qty, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// CreateOrder inserts o followed by its items.
func (s *Store) CreateOrder(ctx context.Context, tx store.DBTransaction, o *store.Order) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO orders (order_number, customer_id, status, currency, amount, placed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, placed_at, updated_at
	`

	err := executor.QueryRowContext(ctx, query,
		o.OrderNumber, o.CustomerID, o.Status, o.Currency, o.Amount,
	).Scan(&o.ID, &o.PlacedAt, &o.UpdatedAt)
	if err != nil {
		return translateError(err)
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	return s.insertOrderItems(ctx, executor, o.Items)
}

// UpdateOrder writes the order columns. Items are left untouched.
func (s *Store) UpdateOrder(ctx context.Context, tx store.DBTransaction, o *store.Order) error {
	query := `
		UPDATE orders
		SET order_number = $1, customer_id = $2, status = $3, currency = $4, amount = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		o.OrderNumber, o.CustomerID, o.Status, o.Currency, o.Amount, o.ID,
	).Scan(&o.UpdatedAt)
	return translateError(err)
}

// ReplaceOrderItems deletes the order's items and inserts the given ones.
func (s *Store) ReplaceOrderItems(ctx context.Context, tx store.DBTransaction, orderID int64, items []store.OrderItem) error {
	executor := s.getExecutor(tx)

	if _, err := executor.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return translateError(err)
	}

	for i := range items {
		items[i].OrderID = orderID
	}
	return s.insertOrderItems(ctx, executor, items)
}

// insertOrderItems writes the items in order and fills in their ids. Each row
// gets its own INSERT ... RETURNING so an id can never be paired with the wrong item.
func (s *Store) insertOrderItems(ctx context.Context, executor store.DBTransaction, items []store.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, qty, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	for i := range items {
		item := &items[i]
		err := executor.QueryRowContext(ctx, query,
			item.OrderID, item.ProductID, item.Qty, item.UnitPrice,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, translateError(err))
		}
	}
	return nil
}
