// Package store contains the database layer for syncbridge.
package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to customers, products and orders created without one.
const DefaultCurrency = "USD"

// Kind identifies one of the entity kinds accepted by the sync endpoint.
type Kind string

const (
	KindCustomers Kind = "customers"
	KindProducts  Kind = "products"
	KindOrders    Kind = "orders"
	KindEmployees Kind = "employees"
)

// Kinds lists every supported entity kind.
var Kinds = []Kind{KindCustomers, KindProducts, KindOrders, KindEmployees}

// ParseKind maps a model token from a sync request to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindCustomers, KindProducts, KindOrders, KindEmployees:
		return k, true
	}
	return "", false
}

// Singular returns the singular entity name, e.g. "customer".
func (k Kind) Singular() string {
	switch k {
	case KindCustomers:
		return "customer"
	case KindProducts:
		return "product"
	case KindOrders:
		return "order"
	case KindEmployees:
		return "employee"
	}
	return string(k)
}

// Customer is a row of the customers table.
type Customer struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	DefaultCurrency string    `json:"default_currency"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Product is a row of the products table.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Active      bool            `json:"active"`
	WeightGrams *int64          `json:"weight_grams"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Order is a row of the orders table together with its line items.
type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  int64           `json:"customer_id"`
	Status      string          `json:"status"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	PlacedAt    time.Time       `json:"placed_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []OrderItem     `json:"items"`
}

// OrderItem is a line of an order. It is deleted together with its order.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Total returns qty * unit_price.
func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Employee is a row of the employees table.
// EmployeeID is the external HR identifier, not the primary key.
type Employee struct {
	ID                int64      `json:"id"`
	EmployeeID        string     `json:"employee_id"`
	FirstName         string     `json:"first_name"`
	MiddleName        *string    `json:"middle_name"`
	LastName          string     `json:"last_name"`
	Gender            *string    `json:"gender"`
	Email             string     `json:"email"`
	PhoneNumber       *string    `json:"phone_number"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Nationality       *string    `json:"nationality"`
	JobLevel          *string    `json:"job_level"`
	Department        *string    `json:"department"`
	Location          *string    `json:"location"`
	BankAccountNumber *string    `json:"bank_account_number"`
	Company           *string    `json:"company"`
	JobTitle          *string    `json:"job_title"`
	CostCenter        *string    `json:"cost_center"`
	StartDate         *time.Time `json:"start_date"`
	EmployeeStatus    *string    `json:"employee_status"`
	ManagerID         *string    `json:"manager_id"`
	ManagerEmail      *string    `json:"manager_email"`
	LastModifiedOn    *time.Time `json:"last_modified_on"`
	LastModified      *int64     `json:"last_modified"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// FullName joins the non-empty name parts with single spaces. It is never stored.
func (e *Employee) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.FirstName, deref(e.MiddleName), e.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// MarshalJSON adds the derived full_name to the stored fields.
func (e Employee) MarshalJSON() ([]byte, error) {
	type plain Employee
	return json.Marshal(struct {
		plain
		FullName string `json:"full_name"`
	}{plain(e), e.FullName()})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SyncStatus is the state of a ledger entry.
type SyncStatus string

const (
	SyncStatusSuccessful   SyncStatus = "successful"
	SyncStatusFailed       SyncStatus = "failed"
	SyncStatusInvalid      SyncStatus = "invalid"
	SyncStatusPendingRetry SyncStatus = "pending_retry"
)

// SyncStatuses lists every ledger status.
var SyncStatuses = []SyncStatus{SyncStatusSuccessful, SyncStatusFailed, SyncStatusInvalid, SyncStatusPendingRetry}

// Outcome reports whether s is a status a sync attempt can finish in.
func (s SyncStatus) Outcome() bool {
	switch s {
	case SyncStatusSuccessful, SyncStatusFailed, SyncStatusInvalid:
		return true
	case SyncStatusPendingRetry:
		return false
	}
	return false
}

// LedgerEntry records one sync attempt.
type LedgerEntry struct {
	ID            int64      `json:"id"`
	Payload       string     `json:"payload"`
	Status        SyncStatus `json:"status"`
	FailureReason *string    `json:"failure_reason"`
	Retries       int        `json:"retries"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
