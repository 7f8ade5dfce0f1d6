package engine

import (
	"context"
	"errors"
	"fmt"

	"syncbridge/internal/store"
)

// OpKind says whether an item creates a new row or updates an existing one.
type OpKind int

const (
	OpCreate OpKind = iota + 1
	OpUpdate
)

// String returns the result status reported to clients.
func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "created"
	case OpUpdate:
		return "updated"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Op is the resolved target of one item. ID is set for updates only.
type Op struct {
	Kind OpKind
	ID   int64
}

// Resolve decides between create and update. An absent id, or an id that
// matches no row, resolves to a create with a store-assigned id.
// The existing row is returned locked for updates.
func Resolve[T any](
	ctx context.Context,
	tx store.DBTransaction,
	id *int64,
	get func(context.Context, store.DBTransaction, int64) (*T, error),
) (Op, *T, error) {
	if id == nil {
		return Op{Kind: OpCreate}, nil, nil
	}

	row, err := get(ctx, tx, *id)
	if errors.Is(err, store.ErrNotFound) {
		return Op{Kind: OpCreate}, nil, nil
	}
	if err != nil {
		return Op{}, nil, fmt.Errorf("resolve id %d: %w", *id, err)
	}
	return Op{Kind: OpUpdate, ID: *id}, row, nil
}
