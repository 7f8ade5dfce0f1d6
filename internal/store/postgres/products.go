package postgres

import (
	"context"

	"syncbridge/internal/store"
)

// GetProduct loads a product and locks its row.
func (s *Store) GetProduct(ctx context.Context, tx store.DBTransaction, id int64) (*store.Product, error) {
	query := `
		SELECT id, name, description, price, currency, active, weight_grams, created_at, updated_at
		FROM products WHERE id = $1
		FOR UPDATE
	`

	var p store.Product
	err := s.getExecutor(tx).QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Currency, &p.Active, &p.WeightGrams,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	return &p, nil
}

// CreateProduct inserts p and fills in its id and timestamps.
func (s *Store) CreateProduct(ctx context.Context, tx store.DBTransaction, p *store.Product) error {
	query := `
		INSERT INTO products (name, description, price, currency, active, weight_grams, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		p.Name, p.Description, p.Price, p.Currency, p.Active, p.WeightGrams,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translateError(err)
}

// UpdateProduct writes every column of p.
func (s *Store) UpdateProduct(ctx context.Context, tx store.DBTransaction, p *store.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, currency = $4, active = $5, weight_grams = $6,
		    updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		p.Name, p.Description, p.Price, p.Currency, p.Active, p.WeightGrams, p.ID,
	).Scan(&p.UpdatedAt)
	return translateError(err)
}

// ProductExists reports whether a product with id exists.
func (s *Store) ProductExists(ctx context.Context, tx store.DBTransaction, id int64) (bool, error) {
	var exists bool
	err := s.getExecutor(tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
