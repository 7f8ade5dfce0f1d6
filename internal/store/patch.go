package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field is an optional value in a patch. Set distinguishes an omitted field
// from one explicitly set to its zero value (or to nil for nullable columns).
type Field[T any] struct {
	Value T
	Set   bool
}

// Some returns a set field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// Or returns the value when set, def otherwise.
func (f Field[T]) Or(def T) T {
	if f.Set {
		return f.Value
	}
	return def
}

func (f Field[T]) applyTo(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}

// CustomerPatch holds the customer fields present in one sync item.
type CustomerPatch struct {
	Email           Field[string]
	FirstName       Field[string]
	LastName        Field[string]
	DefaultCurrency Field[string]
}

// Apply overlays the set fields onto c.
func (p CustomerPatch) Apply(c *Customer) {
	p.Email.applyTo(&c.Email)
	p.FirstName.applyTo(&c.FirstName)
	p.LastName.applyTo(&c.LastName)
	p.DefaultCurrency.applyTo(&c.DefaultCurrency)
}

// New builds a customer from the patch, applying column defaults.
func (p CustomerPatch) New() Customer {
	c := Customer{DefaultCurrency: DefaultCurrency}
	p.Apply(&c)
	return c
}

// ProductPatch holds the product fields present in one sync item.
type ProductPatch struct {
	Name        Field[string]
	Description Field[*string]
	Price       Field[decimal.Decimal]
	Currency    Field[string]
	Active      Field[bool]
	WeightGrams Field[*int64]
}

// Apply overlays the set fields onto pr.
func (p ProductPatch) Apply(pr *Product) {
	p.Name.applyTo(&pr.Name)
	p.Description.applyTo(&pr.Description)
	p.Price.applyTo(&pr.Price)
	p.Currency.applyTo(&pr.Currency)
	p.Active.applyTo(&pr.Active)
	p.WeightGrams.applyTo(&pr.WeightGrams)
}

// New builds a product from the patch, applying column defaults.
func (p ProductPatch) New() Product {
	pr := Product{Currency: DefaultCurrency, Active: true}
	p.Apply(&pr)
	return pr
}

// OrderItemInput is one line of the items list of an order sync item.
type OrderItemInput struct {
	ProductID int64
	Qty       int
	UnitPrice decimal.Decimal
}

// OrderPatch holds the order fields present in one sync item.
// Items.Set with an empty Value means "delete every line".
type OrderPatch struct {
	OrderNumber Field[string]
	CustomerID  Field[int64]
	Status      Field[string]
	Currency    Field[string]
	Amount      Field[decimal.Decimal]
	Items       Field[[]OrderItemInput]
}

// Apply overlays the set scalar fields onto o. Items are handled by the caller.
func (p OrderPatch) Apply(o *Order) {
	p.OrderNumber.applyTo(&o.OrderNumber)
	p.CustomerID.applyTo(&o.CustomerID)
	p.Status.applyTo(&o.Status)
	p.Currency.applyTo(&o.Currency)
	p.Amount.applyTo(&o.Amount)
}

// New builds an order (with its items) from the patch, applying column defaults.
func (p OrderPatch) New() Order {
	o := Order{Currency: DefaultCurrency}
	p.Apply(&o)
	o.Items = p.OrderItems(0)
	return o
}

// OrderItems converts the patch items into rows belonging to orderID.
func (p OrderPatch) OrderItems(orderID int64) []OrderItem {
	items := make([]OrderItem, 0, len(p.Items.Value))
	for _, in := range p.Items.Value {
		items = append(items, OrderItem{
			OrderID:   orderID,
			ProductID: in.ProductID,
			Qty:       in.Qty,
			UnitPrice: in.UnitPrice,
		})
	}
	return items
}

// EmployeePatch holds the employee fields present in one sync item.
type EmployeePatch struct {
	EmployeeID        Field[string]
	FirstName         Field[string]
	MiddleName        Field[*string]
	LastName          Field[string]
	Gender            Field[*string]
	Email             Field[string]
	PhoneNumber       Field[*string]
	DateOfBirth       Field[*time.Time]
	Nationality       Field[*string]
	JobLevel          Field[*string]
	Department        Field[*string]
	Location          Field[*string]
	BankAccountNumber Field[*string]
	Company           Field[*string]
	JobTitle          Field[*string]
	CostCenter        Field[*string]
	StartDate         Field[*time.Time]
	EmployeeStatus    Field[*string]
	ManagerID         Field[*string]
	ManagerEmail      Field[*string]
	LastModifiedOn    Field[*time.Time]
	LastModified      Field[*int64]
}

// Apply overlays the set fields onto e.
func (p EmployeePatch) Apply(e *Employee) {
	p.EmployeeID.applyTo(&e.EmployeeID)
	p.FirstName.applyTo(&e.FirstName)
	p.MiddleName.applyTo(&e.MiddleName)
	p.LastName.applyTo(&e.LastName)
	p.Gender.applyTo(&e.Gender)
	p.Email.applyTo(&e.Email)
	p.PhoneNumber.applyTo(&e.PhoneNumber)
	p.DateOfBirth.applyTo(&e.DateOfBirth)
	p.Nationality.applyTo(&e.Nationality)
	p.JobLevel.applyTo(&e.JobLevel)
	p.Department.applyTo(&e.Department)
	p.Location.applyTo(&e.Location)
	p.BankAccountNumber.applyTo(&e.BankAccountNumber)
	p.Company.applyTo(&e.Company)
	p.JobTitle.applyTo(&e.JobTitle)
	p.CostCenter.applyTo(&e.CostCenter)
	p.StartDate.applyTo(&e.StartDate)
	p.EmployeeStatus.applyTo(&e.EmployeeStatus)
	p.ManagerID.applyTo(&e.ManagerID)
	p.ManagerEmail.applyTo(&e.ManagerEmail)
	p.LastModifiedOn.applyTo(&e.LastModifiedOn)
	p.LastModified.applyTo(&e.LastModified)
}

// New builds an employee from the patch.
func (p EmployeePatch) New() Employee {
	var e Employee
	p.Apply(&e)
	return e
}
