package engine

import (
	"context"
	"fmt"
	"math"

	"syncbridge/internal/store"

	"github.com/shopspring/decimal"
)

const (
	msgEmployeeID    = "Employee id must be numeric when provided"
	msgAmountMissing = "Order must include items or an amount"
)

// References answers foreign key lookups inside the batch transaction.
type References interface {
	CustomerExists(ctx context.Context, tx store.DBTransaction, id int64) (bool, error)
	ProductExists(ctx context.Context, tx store.DBTransaction, id int64) (bool, error)
}

// Normalized is a decoded item: the optional target id and the fields it sets.
type Normalized[P any] struct {
	ID    *int64
	Patch P
}

// Normalizer turns raw items into typed patches.
type Normalizer struct {
	refs References
}

func NewNormalizer(refs References) *Normalizer {
	return &Normalizer{refs: refs}
}

// targetID reads the optional "id" key. Absent and null both mean "no target".
func targetID(d *decoder, invalid string) *int64 {
	val, ok := d.raw("id")
	if !ok || val == nil {
		return nil
	}
	if _, isBool := val.(bool); !isBool {
		if id, ok := toInt64(val); ok {
			return &id
		}
	}
	d.fail("id", invalid)
	return nil
}

func (n *Normalizer) Customer(item Item) (Normalized[store.CustomerPatch], Violations) {
	var v Violations
	d := &decoder{item: item, v: &v}

	out := Normalized[store.CustomerPatch]{ID: targetID(d, msgInteger)}
	out.Patch = store.CustomerPatch{
		Email:           d.email("email"),
		FirstName:       d.str("first_name", maxNameLength),
		LastName:        d.str("last_name", maxNameLength),
		DefaultCurrency: d.currency("default_currency"),
	}
	return out, v
}

func (n *Normalizer) Product(item Item) (Normalized[store.ProductPatch], Violations) {
	var v Violations
	d := &decoder{item: item, v: &v}

	out := Normalized[store.ProductPatch]{ID: targetID(d, msgInteger)}
	out.Patch = store.ProductPatch{
		Name:        d.str("name", 255),
		Description: d.optStr("description", 0),
		Price:       d.money("price"),
		Currency:    d.currency("currency"),
		Active:      d.boolean("active"),
		WeightGrams: d.optInteger("weight_grams", math.MaxInt32),
	}
	return out, v
}

// Order decodes an order item. Customer and product references are checked
// against the store, and the amount is derived from or checked against the items.
func (n *Normalizer) Order(ctx context.Context, tx store.DBTransaction, item Item) (Normalized[store.OrderPatch], Violations, error) {
	var v Violations
	d := &decoder{item: item, v: &v}

	out := Normalized[store.OrderPatch]{ID: targetID(d, msgInteger)}
	p := store.OrderPatch{
		OrderNumber: d.str("order_number", 64),
		Status:      d.str("status", 32),
		Currency:    d.currency("currency"),
		Amount:      d.money("amount"),
	}

	customerID, err := n.reference(ctx, tx, d, "customer_id", n.refs.CustomerExists)
	if err != nil {
		return out, nil, err
	}
	p.CustomerID = customerID

	items, itemsOK, err := n.orderItems(ctx, tx, d)
	if err != nil {
		return out, nil, err
	}
	p.Items = items

	if itemsOK {
		if len(p.Items.Value) > 0 {
			calculated := decimal.Zero
			for _, it := range p.Items.Value {
				calculated = calculated.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
			}
			switch {
			case !p.Amount.Set:
				if _, present := item["amount"]; !present {
					p.Amount = store.Some(calculated)
				}
			case !p.Amount.Value.Equal(calculated):
				d.fail("amount", fmt.Sprintf(
					"Order amount must equal the sum of item prices (qty * unit_price). Calculated=%s provided=%s",
					calculated.StringFixed(moneyPlaces), p.Amount.Value.StringFixed(moneyPlaces),
				))
			}
		} else if _, present := item["amount"]; !present {
			d.fail("amount", msgAmountMissing)
		}
	}

	out.Patch = p
	return out, v, nil
}

// reference decodes a primary key and checks that the row exists.
func (n *Normalizer) reference(
	ctx context.Context,
	tx store.DBTransaction,
	d *decoder,
	key string,
	exists func(context.Context, store.DBTransaction, int64) (bool, error),
) (store.Field[int64], error) {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[int64]{}, nil
	}
	if val == nil {
		d.fail(key, msgNull)
		return store.Field[int64]{}, nil
	}
	id, ok := toInt64(val)
	if _, isBool := val.(bool); isBool || !ok {
		d.fail(key, fmt.Sprintf("Incorrect type. Expected pk value, received %s.", TypeName(val)))
		return store.Field[int64]{}, nil
	}
	found, err := exists(ctx, tx, id)
	if err != nil {
		return store.Field[int64]{}, fmt.Errorf("check %s %d: %w", key, id, err)
	}
	if !found {
		d.fail(key, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
		return store.Field[int64]{}, nil
	}
	return store.Some(id), nil
}

// orderItems decodes the nested items list. The boolean reports whether the
// list (when present) decoded without violations.
func (n *Normalizer) orderItems(ctx context.Context, tx store.DBTransaction, d *decoder) (store.Field[[]store.OrderItemInput], bool, error) {
	val, ok := d.raw("items")
	if !ok {
		return store.Field[[]store.OrderItemInput]{}, true, nil
	}
	if val == nil {
		d.fail("items", msgNull)
		return store.Field[[]store.OrderItemInput]{}, false, nil
	}
	list, ok := val.([]any)
	if !ok {
		d.fail("items", fmt.Sprintf("Expected a list of items but got type %q.", TypeName(val)))
		return store.Field[[]store.OrderItemInput]{}, false, nil
	}

	before := len(*d.v)
	inputs := make([]store.OrderItemInput, 0, len(list))
	for i, raw := range list {
		prefix := fmt.Sprintf("items[%d].", i)
		obj, ok := asItem(raw)
		if !ok {
			d.v.Add(fmt.Sprintf("items[%d]", i),
				fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", TypeName(raw)))
			continue
		}

		sub := &decoder{item: obj, prefix: prefix, v: d.v}
		productID, err := n.reference(ctx, tx, sub, "product_id", n.refs.ProductExists)
		if err != nil {
			return store.Field[[]store.OrderItemInput]{}, false, err
		}
		qty := sub.integer("qty", 1, math.MaxInt32)
		price := sub.money("unit_price")

		for _, key := range []string{"product_id", "qty", "unit_price"} {
			if _, present := obj[key]; !present {
				sub.fail(key, msgRequired)
			}
		}

		inputs = append(inputs, store.OrderItemInput{
			ProductID: productID.Value,
			Qty:       int(qty.Value),
			UnitPrice: price.Value,
		})
	}

	if len(*d.v) > before {
		return store.Field[[]store.OrderItemInput]{}, false, nil
	}
	return store.Some(inputs), true, nil
}

func asItem(val any) (Item, bool) {
	switch m := val.(type) {
	case map[string]any:
		return Item(m), true
	case Item:
		return m, true
	}
	return nil, false
}

// Employee decodes an employee item. Keys are converted to snake_case first,
// so camelCase and snake_case payloads are equivalent.
func (n *Normalizer) Employee(item Item) (Normalized[store.EmployeePatch], Violations) {
	var v Violations
	d := &decoder{item: CanonicalKeys(item), v: &v}

	out := Normalized[store.EmployeePatch]{ID: targetID(d, msgEmployeeID)}
	out.Patch = store.EmployeePatch{
		EmployeeID:        d.str("employee_id", 64),
		FirstName:         d.str("first_name", maxNameLength),
		MiddleName:        d.optStr("middle_name", maxNameLength),
		LastName:          d.str("last_name", maxNameLength),
		Gender:            d.optStr("gender", 64),
		Email:             d.email("email"),
		PhoneNumber:       d.optStr("phone_number", 64),
		DateOfBirth:       d.optTime("date_of_birth"),
		Nationality:       d.optStr("nationality", 64),
		JobLevel:          d.optStr("job_level", 64),
		Department:        d.optStr("department", 128),
		Location:          d.optStr("location", 128),
		BankAccountNumber: d.optStr("bank_account_number", 128),
		Company:           d.optStr("company", 128),
		JobTitle:          d.optStr("job_title", 128),
		CostCenter:        d.optStr("cost_center", 128),
		StartDate:         d.optTime("start_date"),
		EmployeeStatus:    d.optStr("employee_status", 64),
		ManagerID:         d.optStr("manager_id", 64),
		ManagerEmail:      d.optEmail("manager_email"),
		LastModifiedOn:    d.optTime("last_modified_on"),
		LastModified:      d.optInteger("last_modified", math.MaxInt64),
	}
	return out, v
}

// Required-field checks apply only when an item creates a new row.

func requireCustomer(p store.CustomerPatch) Violations {
	return required(
		field{"email", p.Email.Set},
		field{"first_name", p.FirstName.Set},
		field{"last_name", p.LastName.Set},
	)
}

func requireProduct(p store.ProductPatch) Violations {
	return required(
		field{"name", p.Name.Set},
		field{"price", p.Price.Set},
	)
}

func requireOrder(p store.OrderPatch) Violations {
	return required(
		field{"order_number", p.OrderNumber.Set},
		field{"customer_id", p.CustomerID.Set},
		field{"status", p.Status.Set},
	)
}

func requireEmployee(p store.EmployeePatch) Violations {
	return required(
		field{"employee_id", p.EmployeeID.Set},
		field{"first_name", p.FirstName.Set},
		field{"last_name", p.LastName.Set},
		field{"email", p.Email.Set},
	)
}

type field struct {
	name string
	set  bool
}

func required(fields ...field) Violations {
	var v Violations
	for _, f := range fields {
		if !f.set {
			v.Add(f.name, msgRequired)
		}
	}
	return v
}
