package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const generatedRefPrefix = "generated-"

// PaymentSnapshot is the per-dispatch view of the payment backing an order.
// It is derived fresh for every dispatch and never persisted.
type PaymentSnapshot struct {
	Reference   string          `json:"reference"`
	AuthCode    string          `json:"auth_code"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// NewPaymentSnapshot derives a snapshot from an order. Orders without a
// transaction reference get a time-based generated one so downstream
// channels always receive a non-empty reference. The authorization code is
// generated per attempt and exists for display only.
func NewPaymentSnapshot(o *Order, defaultCurrency string, now time.Time) *PaymentSnapshot {
	reference := fmt.Sprintf("%s%d", generatedRefPrefix, now.UnixNano())
	if o.TransactionRef != nil && *o.TransactionRef != "" {
		reference = *o.TransactionRef
	}

	currency := defaultCurrency
	if o.Currency != nil {
		currency = o.Currency.Code
	}

	processedAt := now
	if o.PaidAt != nil {
		processedAt = *o.PaidAt
	}

	return &PaymentSnapshot{
		Reference:   reference,
		AuthCode:    strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
		Amount:      o.TotalAmount,
		Currency:    currency,
		ProcessedAt: processedAt,
	}
}

// IsGeneratedReference reports whether the reference was synthesized rather
// than taken from the order's transaction reference.
func (p *PaymentSnapshot) IsGeneratedReference() bool {
	return strings.HasPrefix(p.Reference, generatedRefPrefix)
}

// ConfirmationContext is the read-only bundle both channels render from.
// It is assembled once per dispatch and safely shared across channel
// attempts within that dispatch.
type ConfirmationContext struct {
	Order          *Order
	Customer       *Customer
	LinkedAccount  *LinkedAccount
	BillingProfile *BillingProfile
	Payment        *PaymentSnapshot
}

// Summary returns the order summary embedded in the dispatch report
func (c *ConfirmationContext) Summary(defaultCurrency string) OrderSummary {
	return NewOrderSummary(c.Order, defaultCurrency)
}

// OutcomeStatus is the channel-level result of a dispatch
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// EmailResult reports the email channel outcome for one dispatch
type EmailResult struct {
	Status       OutcomeStatus `json:"status"`
	CustomerSent bool          `json:"customer_sent"`
	AdminSent    bool          `json:"admin_sent"`
	Error        string        `json:"error,omitempty"`
}

// WhatsAppResult reports the messaging channel outcome for one dispatch.
// CustomerPhone is null when the customer has no phone on file, in which
// case the customer send is skipped rather than failed.
type WhatsAppResult struct {
	Status        OutcomeStatus `json:"status"`
	CustomerSent  bool          `json:"customer_sent"`
	CustomerPhone *string       `json:"customer_phone"`
	AdminSent     bool          `json:"admin_sent"`
	Error         string        `json:"error,omitempty"`
}

// DispatchReport is the aggregated outcome of one dispatch. Success follows
// an inclusive-OR policy: the dispatch counts as successful when at least
// one channel fully succeeded.
type DispatchReport struct {
	Success         bool             `json:"success"`
	Order           OrderSummary     `json:"order"`
	PaymentData     *PaymentSnapshot `json:"payment_data"`
	EmailResults    EmailResult      `json:"email_results"`
	WhatsAppResults WhatsAppResult   `json:"whatsapp_results"`
	DispatchedAt    time.Time        `json:"dispatched_at"`
}
