package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/insider-one/order-confirmation-service/internal/domain"
)

// ContextBuilder assembles the read-only confirmation context for one
// dispatch: the order with everything both channels need, loaded once, plus
// the derived payment snapshot.
type ContextBuilder struct {
	orders          domain.OrderRepository
	defaultCurrency string
	logger          *slog.Logger
	now             func() time.Time
}

// NewContextBuilder creates a new ContextBuilder
func NewContextBuilder(orders domain.OrderRepository, defaultCurrency string, logger *slog.Logger) *ContextBuilder {
	return &ContextBuilder{
		orders:          orders,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
}

// SetClock overrides the time source, used by tests
func (b *ContextBuilder) SetClock(now func() time.Time) {
	b.now = now
}

// Build loads the order identified by id and derives the payment snapshot.
// Returns domain.ErrNotFound when the order does not exist. The build never
// mutates the order.
func (b *ContextBuilder) Build(ctx context.Context, id int64) (*domain.ConfirmationContext, error) {
	order, err := b.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshot := domain.NewPaymentSnapshot(order, b.defaultCurrency, b.now().UTC())

	b.logger.Debug("confirmation context assembled",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"payment_reference", snapshot.Reference,
		"generated_reference", snapshot.IsGeneratedReference(),
	)

	return &domain.ConfirmationContext{
		Order:          order,
		Customer:       order.Customer,
		LinkedAccount:  order.LinkedAccount,
		BillingProfile: order.BillingProfile,
		Payment:        snapshot,
	}, nil
}

// Sample returns the summary of the most recently paid order, for use as
// dispatch input when exercising the flow by hand.
func (b *ContextBuilder) Sample(ctx context.Context) (*domain.OrderSummary, error) {
	order, err := b.orders.FindLatestPaid(ctx)
	if err != nil {
		return nil, err
	}

	summary := domain.NewOrderSummary(order, b.defaultCurrency)
	return &summary, nil
}

// DefaultCurrency exposes the configured fallback currency code
func (b *ContextBuilder) DefaultCurrency() string {
	return b.defaultCurrency
}
