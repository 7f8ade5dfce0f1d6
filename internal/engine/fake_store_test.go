package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"syncbridge/internal/notify"
	"syncbridge/internal/store"
)

// memStore is an in-memory EntityStore. A transaction snapshots the tables and
// a rollback without commit restores the snapshot.
type memStore struct {
	customers map[int64]store.Customer
	products  map[int64]store.Product
	orders    map[int64]store.Order
	employees map[int64]store.Employee
	nextID    int64

	beginErr  error
	commitErr error
	// onBegin runs inside BeginTx, e.g. to cancel the request context.
	onBegin func()
	// failCreateAt makes the n-th create call (1-based) return failCreateErr.
	failCreateAt  int
	failCreateErr error
	creates       int
	panicOnCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[int64]store.Customer{},
		products:  map[int64]store.Product{},
		orders:    map[int64]store.Order{},
		employees: map[int64]store.Employee{},
		nextID:    100,
	}
}

type snapshot struct {
	customers map[int64]store.Customer
	products  map[int64]store.Product
	orders    map[int64]store.Order
	employees map[int64]store.Employee
	nextID    int64
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *memStore) snapshot() snapshot {
	return snapshot{
		customers: cloneMap(m.customers),
		products:  cloneMap(m.products),
		orders:    cloneMap(m.orders),
		employees: cloneMap(m.employees),
		nextID:    m.nextID,
	}
}

func (m *memStore) restore(s snapshot) {
	m.customers, m.products, m.orders, m.employees, m.nextID = s.customers, s.products, s.orders, s.employees, s.nextID
}

type memTx struct {
	store     *memStore
	snap      snapshot
	done      bool
	committed bool
}

func (t *memTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("not supported")
}

func (t *memTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (t *memTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.done, t.committed = true, true
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.restore(t.snap)
	return nil
}

func (m *memStore) BeginTx(context.Context) (store.Tx, error) {
	if m.onBegin != nil {
		m.onBegin()
	}
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return &memTx{store: m, snap: m.snapshot()}, nil
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) beforeCreate() error {
	m.creates++
	if m.panicOnCreate {
		panic("boom")
	}
	if m.failCreateAt > 0 && m.creates == m.failCreateAt {
		return m.failCreateErr
	}
	return nil
}

func (m *memStore) GetCustomer(_ context.Context, _ store.DBTransaction, id int64) (*store.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) CreateCustomer(_ context.Context, _ store.DBTransaction, c *store.Customer) error {
	if err := m.beforeCreate(); err != nil {
		return err
	}
	for _, other := range m.customers {
		if other.Email == c.Email {
			return &store.ConstraintError{Kind: store.ConstraintUnique, Constraint: "customers_email_key", Field: "email"}
		}
	}
	c.ID = m.id()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	m.customers[c.ID] = *c
	return nil
}

func (m *memStore) UpdateCustomer(_ context.Context, _ store.DBTransaction, c *store.Customer) error {
	for id, other := range m.customers {
		if id != c.ID && other.Email == c.Email {
			return &store.ConstraintError{Kind: store.ConstraintUnique, Constraint: "customers_email_key", Field: "email"}
		}
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *memStore) CustomerExists(_ context.Context, _ store.DBTransaction, id int64) (bool, error) {
	_, ok := m.customers[id]
	return ok, nil
}

func (m *memStore) GetProduct(_ context.Context, _ store.DBTransaction, id int64) (*store.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) CreateProduct(_ context.Context, _ store.DBTransaction, p *store.Product) error {
	if err := m.beforeCreate(); err != nil {
		return err
	}
	p.ID = m.id()
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) UpdateProduct(_ context.Context, _ store.DBTransaction, p *store.Product) error {
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) ProductExists(_ context.Context, _ store.DBTransaction, id int64) (bool, error) {
	_, ok := m.products[id]
	return ok, nil
}

func (m *memStore) GetOrder(_ context.Context, _ store.DBTransaction, id int64) (*store.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Items = append([]store.OrderItem(nil), o.Items...)
	return &o, nil
}

func (m *memStore) CreateOrder(_ context.Context, _ store.DBTransaction, o *store.Order) error {
	if err := m.beforeCreate(); err != nil {
		return err
	}
	o.ID = m.id()
	for i := range o.Items {
		o.Items[i].ID = m.id()
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]store.OrderItem(nil), o.Items...)
	m.orders[o.ID] = stored
	return nil
}

func (m *memStore) UpdateOrder(_ context.Context, _ store.DBTransaction, o *store.Order) error {
	cur := m.orders[o.ID]
	items := cur.Items
	cur = *o
	cur.Items = items
	m.orders[o.ID] = cur
	return nil
}

func (m *memStore) ReplaceOrderItems(_ context.Context, _ store.DBTransaction, orderID int64, items []store.OrderItem) error {
	o := m.orders[orderID]
	o.Items = nil
	for _, it := range items {
		it.ID = m.id()
		it.OrderID = orderID
		o.Items = append(o.Items, it)
	}
	m.orders[orderID] = o
	return nil
}

func (m *memStore) GetEmployee(_ context.Context, _ store.DBTransaction, id int64) (*store.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (m *memStore) CreateEmployee(_ context.Context, _ store.DBTransaction, e *store.Employee) error {
	if err := m.beforeCreate(); err != nil {
		return err
	}
	e.ID = m.id()
	m.employees[e.ID] = *e
	return nil
}

func (m *memStore) UpdateEmployee(_ context.Context, _ store.DBTransaction, e *store.Employee) error {
	m.employees[e.ID] = *e
	return nil
}

// memRecorder is an in-memory Recorder.
type memRecorder struct {
	entries   map[int64]*store.LedgerEntry
	nextID    int64
	recordErr error
}

func newMemRecorder() *memRecorder {
	return &memRecorder{entries: map[int64]*store.LedgerEntry{}}
}

func (r *memRecorder) Record(_ context.Context, payload string) (*store.LedgerEntry, error) {
	if r.recordErr != nil {
		return nil, r.recordErr
	}
	r.nextID++
	e := &store.LedgerEntry{ID: r.nextID, Payload: payload, Status: store.SyncStatusPendingRetry}
	r.entries[e.ID] = e
	return e, nil
}

func (r *memRecorder) Finalize(ctx context.Context, id int64, status store.SyncStatus, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, ok := r.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	if e.Status != store.SyncStatusPendingRetry {
		return store.ErrInvalidTransition
	}
	e.Status = status
	if reason != "" {
		e.FailureReason = &reason
	}
	return nil
}

func (r *memRecorder) only() *store.LedgerEntry {
	if len(r.entries) != 1 {
		return nil
	}
	for _, e := range r.entries {
		return e
	}
	return nil
}

type recordingNotifier struct {
	kinds []store.Kind
	ids   []int64
	err   error
}

func (n *recordingNotifier) Publish(_ context.Context, e notify.Event) error {
	n.kinds = append(n.kinds, e.Kind)
	n.ids = append(n.ids, e.ID)
	return n.err
}
