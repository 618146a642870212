package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// IsPaid reports whether the order has reached a paid state
func (s PaymentStatus) IsPaid() bool {
	return s == PaymentPaid
}

// Order represents a completed purchase in the marketplace
type Order struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"order_number"`
	CustomerID     int64           `json:"customer_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         PaymentStatus   `json:"status"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	TransactionRef *string         `json:"transaction_ref,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Customer       *Customer       `json:"customer,omitempty"`
	Currency       *Currency       `json:"currency,omitempty"`
	Items          []OrderItem     `json:"items,omitempty"`
	BillingProfile *BillingProfile `json:"billing_profile,omitempty"`
	LinkedAccount  *LinkedAccount  `json:"linked_account,omitempty"`
}

// Customer is the buyer associated with an order
type Customer struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// HasPhone reports whether the customer has a usable phone number on file
func (c *Customer) HasPhone() bool {
	return c != nil && c.Phone != nil && *c.Phone != ""
}

// Currency is a store currency
type Currency struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// OrderItem is a single line item of an order
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// BillingProfile holds optional invoicing details for an order
type BillingProfile struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"order_id"`
	TaxID        string `json:"tax_id"`
	Organization string `json:"organization"`
}

// LinkedAccount is the tenant account provisioned by the purchase, if any
type LinkedAccount struct {
	ID      int64  `json:"id"`
	OrderID int64  `json:"order_id"`
	Domain  string `json:"domain"`
}

// OrderSummary is the compact order view embedded in dispatch reports
type OrderSummary struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
}

// NewOrderSummary builds a summary from a loaded order. The default store
// currency is used when the order has no currency attached.
func NewOrderSummary(o *Order, defaultCurrency string) OrderSummary {
	s := OrderSummary{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		TotalAmount: o.TotalAmount,
		Currency:    defaultCurrency,
		Status:      o.Status,
		PaidAt:      o.PaidAt,
	}
	if o.Currency != nil {
		s.Currency = o.Currency.Code
	}
	if o.Customer != nil {
		s.CustomerName = o.Customer.Name
		s.CustomerEmail = o.Customer.Email
	}
	return s
}

// OrderRepository defines read access to the order store. Orders returned by
// both methods come with customer, currency, items, billing profile and
// linked account loaded.
type OrderRepository interface {
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindLatestPaid(ctx context.Context) (*Order, error)
}
