package engine

import (
	"context"
	"fmt"

	"syncbridge/internal/store"
)

// Store is what the processor needs from the database layer.
type Store interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	store.EntityStore
}

// Result is the outcome of one item, in request order.
type Result struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// Created describes an entity inserted by a committed batch.
type Created struct {
	Kind   store.Kind
	ID     int64
	Entity any
}

// Processor applies a batch of items inside one transaction.
type Processor struct {
	store      Store
	normalizer *Normalizer
}

func NewProcessor(s Store) *Processor {
	return &Processor{store: s, normalizer: NewNormalizer(s)}
}

// Process validates and writes every item. Either all items are persisted or
// none are: the first failing item rolls back the whole batch.
func (p *Processor) Process(ctx context.Context, kind store.Kind, items []Item) ([]Result, []Created, error) {
	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	results := make([]Result, 0, len(items))
	var created []Created
	for i, item := range items {
		res, c, err := p.processItem(ctx, tx, kind, i, item)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, res)
		if c != nil {
			created = append(created, *c)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return results, created, nil
}

func (p *Processor) processItem(ctx context.Context, tx store.Tx, kind store.Kind, index int, item Item) (Result, *Created, error) {
	switch kind {
	case store.KindCustomers:
		return p.upsertCustomer(ctx, tx, index, item)
	case store.KindProducts:
		return p.upsertProduct(ctx, tx, index, item)
	case store.KindOrders:
		return p.upsertOrder(ctx, tx, index, item)
	case store.KindEmployees:
		return p.upsertEmployee(ctx, tx, index, item)
	}
	return Result{}, nil, fmt.Errorf("unsupported kind %q", kind)
}

func itemError(index int, err error) error {
	return fmt.Errorf("item %d: %w", index, err)
}

func (p *Processor) upsertCustomer(ctx context.Context, tx store.Tx, index int, item Item) (Result, *Created, error) {
	in, v := p.normalizer.Customer(item)
	if err := v.Err(index); err != nil {
		return Result{}, nil, err
	}

	op, existing, err := Resolve(ctx, tx, in.ID, p.store.GetCustomer)
	if err != nil {
		return Result{}, nil, itemError(index, err)
	}

	switch op.Kind {
	case OpUpdate:
		in.Patch.Apply(existing)
		if err := p.store.UpdateCustomer(ctx, tx, existing); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		return Result{ID: existing.ID, Status: op.Kind.String()}, nil, nil
	case OpCreate:
		if err := requireCustomer(in.Patch).Err(index); err != nil {
			return Result{}, nil, err
		}
		c := in.Patch.New()
		if err := p.store.CreateCustomer(ctx, tx, &c); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		return Result{ID: c.ID, Status: op.Kind.String()}, &Created{Kind: store.KindCustomers, ID: c.ID, Entity: c}, nil
	}
	return Result{}, nil, fmt.Errorf("unexpected op %s", op.Kind)
}

func (p *Processor) upsertProduct(ctx context.Context, tx store.Tx, index int, item Item) (Result, *Created, error) {
	in, v := p.normalizer.Product(item)
	if err := v.Err(index); err != nil {
		return Result{}, nil, err
	}

	op, existing, err := Resolve(ctx, tx, in.ID, p.store.GetProduct)
	if err != nil {
		return Result{}, nil, itemError(index, err)
	}

	switch op.Kind {
	case OpUpdate:
		in.Patch.Apply(existing)
		if err := p.store.UpdateProduct(ctx, tx, existing); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		return Result{ID: existing.ID, Status: op.Kind.String()}, nil, nil
	case OpCreate:
		if err := requireProduct(in.Patch).Err(index); err != nil {
			return Result{}, nil, err
		}
		pr := in.Patch.New()
		if err := p.store.CreateProduct(ctx, tx, &pr); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		return Result{ID: pr.ID, Status: op.Kind.String()}, &Created{Kind: store.KindProducts, ID: pr.ID, Entity: pr}, nil
	}
	return Result{}, nil, fmt.Errorf("unexpected op %s", op.Kind)
}

// upsertOrder replaces an existing order's items only when the item carries an
// items list. An empty list removes every line.
func (p *Processor) upsertOrder(ctx context.Context, tx store.Tx, index int, item Item) (Result, *Created, error) {
	in, v, err := p.normalizer.Order(ctx, tx, item)
	if err != nil {
		return Result{}, nil, itemError(index, err)
	}
	if err := v.Err(index); err != nil {
		return Result{}, nil, err
	}

	op, existing, err := Resolve(ctx, tx, in.ID, p.store.GetOrder)
	if err != nil {
		return Result{}, nil, itemError(index, err)
	}

	switch op.Kind {
	case OpUpdate:
		in.Patch.Apply(existing)
		if err := p.store.UpdateOrder(ctx, tx, existing); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		if in.Patch.Items.Set {
			if err := p.store.ReplaceOrderItems(ctx, tx, existing.ID, in.Patch.OrderItems(existing.ID)); err != nil {
				return Result{}, nil, itemError(index, err)
			}
		}
		return Result{ID: existing.ID, Status: op.Kind.String()}, nil, nil
	case OpCreate:
		if err := requireOrder(in.Patch).Err(index); err != nil {
			return Result{}, nil, err
		}
		o := in.Patch.New()
		if err := p.store.CreateOrder(ctx, tx, &o); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		return Result{ID: o.ID, Status: op.Kind.String()}, &Created{Kind: store.KindOrders, ID: o.ID, Entity: o}, nil
	}
	return Result{}, nil, fmt.Errorf("unexpected op %s", op.Kind)
}

func (p *Processor) upsertEmployee(ctx context.Context, tx store.Tx, index int, item Item) (Result, *Created, error) {
	in, v := p.normalizer.Employee(item)
	if err := v.Err(index); err != nil {
		return Result{}, nil, err
	}

	op, existing, err := Resolve(ctx, tx, in.ID, p.store.GetEmployee)
	if err != nil {
		return Result{}, nil, itemError(index, err)
	}

	switch op.Kind {
	case OpUpdate:
		in.Patch.Apply(existing)
		if err := p.store.UpdateEmployee(ctx, tx, existing); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		return Result{ID: existing.ID, Status: op.Kind.String()}, nil, nil
	case OpCreate:
		if err := requireEmployee(in.Patch).Err(index); err != nil {
			return Result{}, nil, err
		}
		e := in.Patch.New()
		if err := p.store.CreateEmployee(ctx, tx, &e); err != nil {
			return Result{}, nil, itemError(index, err)
		}
		return Result{ID: e.ID, Status: op.Kind.String()}, &Created{Kind: store.KindEmployees, ID: e.ID, Entity: e}, nil
	}
	return Result{}, nil, fmt.Errorf("unexpected op %s", op.Kind)
}
