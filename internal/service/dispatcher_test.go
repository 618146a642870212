package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/insider-one/order-confirmation-service/internal/domain"
)

// MockEmailChannel is a mock implementation of domain.EmailChannel
type MockEmailChannel struct {
	mock.Mock
}

func (m *MockEmailChannel) SendCustomerConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockEmailChannel) SendAdminConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockMessagingChannel is a mock implementation of domain.MessagingChannel
type MockMessagingChannel struct {
	mock.Mock
}

func (m *MockMessagingChannel) SendCustomerConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockMessagingChannel) SendAdminConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func testConfirmation(phone *string, txnRef *string) *domain.ConfirmationContext {
	paidAt := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	order := &domain.Order{
		ID:             1042,
		OrderNumber:    "ORD-1042",
		CustomerID:     7,
		TotalAmount:    decimal.RequireFromString("149.90"),
		Status:         domain.PaymentPaid,
		PaidAt:         &paidAt,
		TransactionRef: txnRef,
		Customer: &domain.Customer{
			ID:    7,
			Name:  "Ada Yilmaz",
			Email: "a@b.com",
			Phone: phone,
		},
		Currency: &domain.Currency{ID: 1, Code: "TRY"},
	}

	return &domain.ConfirmationContext{
		Order:    order,
		Customer: order.Customer,
		Payment:  domain.NewPaymentSnapshot(order, "USD", time.Now().UTC()),
	}
}

func newTestDispatcher(email domain.EmailChannel, messaging domain.MessagingChannel) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewDispatcher(email, messaging, "USD", logger)
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	phone := "+905551234567"

	t.Run("all sends succeed", func(t *testing.T) {
		email := new(MockEmailChannel)
		messaging := new(MockMessagingChannel)
		email.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		email.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()

		report := newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(&phone, nil))

		assert.True(t, report.Success)
		assert.Equal(t, domain.OutcomeSuccess, report.EmailResults.Status)
		assert.True(t, report.EmailResults.CustomerSent)
		assert.True(t, report.EmailResults.AdminSent)
		assert.Equal(t, domain.OutcomeSuccess, report.WhatsAppResults.Status)
		assert.True(t, report.WhatsAppResults.CustomerSent)
		assert.Equal(t, &phone, report.WhatsAppResults.CustomerPhone)
		assert.True(t, report.WhatsAppResults.AdminSent)
		email.AssertExpectations(t)
		messaging.AssertExpectations(t)
	})

	t.Run("failing email channel does not starve messaging channel", func(t *testing.T) {
		email := new(MockEmailChannel)
		messaging := new(MockMessagingChannel)
		email.On("SendCustomerConfirmation", ctx, mock.Anything).Return(errors.New("SMTP timeout")).Once()
		email.On("SendAdminConfirmation", ctx, mock.Anything).Return(errors.New("SMTP timeout")).Once()
		messaging.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()

		report := newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(&phone, nil))

		// Inclusive OR: one fully successful channel is enough
		assert.True(t, report.Success)
		assert.Equal(t, domain.OutcomeError, report.EmailResults.Status)
		assert.Equal(t, "SMTP timeout", report.EmailResults.Error)
		assert.Equal(t, domain.OutcomeSuccess, report.WhatsAppResults.Status)
		messaging.AssertExpectations(t)
	})

	t.Run("customer email failure still attempts admin email exactly once", func(t *testing.T) {
		email := new(MockEmailChannel)
		messaging := new(MockMessagingChannel)
		email.On("SendCustomerConfirmation", ctx, mock.Anything).Return(errors.New("mailbox unavailable")).Once()
		email.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()

		report := newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(&phone, nil))

		email.AssertNumberOfCalls(t, "SendAdminConfirmation", 1)
		assert.Equal(t, domain.OutcomeError, report.EmailResults.Status)
		assert.Equal(t, "mailbox unavailable", report.EmailResults.Error)
		assert.False(t, report.EmailResults.CustomerSent)
		assert.True(t, report.EmailResults.AdminSent)
	})

	t.Run("missing phone skips customer message but attempts admin message", func(t *testing.T) {
		email := new(MockEmailChannel)
		messaging := new(MockMessagingChannel)
		email.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		email.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()

		report := newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(nil, nil))

		messaging.AssertNotCalled(t, "SendCustomerConfirmation", ctx, mock.Anything)
		assert.Equal(t, domain.OutcomeSuccess, report.WhatsAppResults.Status)
		assert.False(t, report.WhatsAppResults.CustomerSent)
		assert.Nil(t, report.WhatsAppResults.CustomerPhone)
		assert.True(t, report.WhatsAppResults.AdminSent)
	})

	t.Run("both channels failing yields overall failure", func(t *testing.T) {
		email := new(MockEmailChannel)
		messaging := new(MockMessagingChannel)
		email.On("SendCustomerConfirmation", ctx, mock.Anything).Return(errors.New("smtp down")).Once()
		email.On("SendAdminConfirmation", ctx, mock.Anything).Return(errors.New("smtp down")).Once()
		messaging.On("SendCustomerConfirmation", ctx, mock.Anything).Return(errors.New("api down")).Once()
		messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(errors.New("api down")).Once()

		report := newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(&phone, nil))

		assert.False(t, report.Success)
		assert.Equal(t, domain.OutcomeError, report.EmailResults.Status)
		assert.Equal(t, domain.OutcomeError, report.WhatsAppResults.Status)
	})

	t.Run("partial messaging failure fails the channel", func(t *testing.T) {
		email := new(MockEmailChannel)
		messaging := new(MockMessagingChannel)
		email.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		email.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(errors.New("group unreachable")).Once()

		report := newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(&phone, nil))

		assert.Equal(t, domain.OutcomeError, report.WhatsAppResults.Status)
		assert.True(t, report.WhatsAppResults.CustomerSent)
		assert.False(t, report.WhatsAppResults.AdminSent)
		// Email channel succeeded, so the dispatch still counts as successful
		assert.True(t, report.Success)
	})

	t.Run("panicking channel is absorbed into the outcome", func(t *testing.T) {
		email := new(MockEmailChannel)
		messaging := new(MockMessagingChannel)
		email.On("SendCustomerConfirmation", ctx, mock.Anything).Panic("nil pointer dereference").Once()
		email.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
		messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()

		var report *domain.DispatchReport
		assert.NotPanics(t, func() {
			report = newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(&phone, nil))
		})

		assert.Equal(t, domain.OutcomeError, report.EmailResults.Status)
		assert.Contains(t, report.EmailResults.Error, "channel panic")
		email.AssertNumberOfCalls(t, "SendAdminConfirmation", 1)
		assert.True(t, report.Success)
	})
}

func TestDispatcher_SendOrdering(t *testing.T) {
	ctx := context.Background()
	phone := "+905551234567"
	var calls []string

	email := &recordingChannel{name: "email", calls: &calls}
	messaging := &recordingChannel{name: "whatsapp", calls: &calls}

	newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(&phone, nil))

	assert.Equal(t, []string{
		"email:customer",
		"email:admin",
		"whatsapp:customer",
		"whatsapp:admin",
	}, calls)
}

func TestDispatcher_Scenario1042(t *testing.T) {
	// Order #1042: email a@b.com, no phone, no transaction reference
	ctx := context.Background()
	email := new(MockEmailChannel)
	messaging := new(MockMessagingChannel)
	email.On("SendCustomerConfirmation", ctx, mock.Anything).Return(nil).Once()
	email.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()
	messaging.On("SendAdminConfirmation", ctx, mock.Anything).Return(nil).Once()

	report := newTestDispatcher(email, messaging).Dispatch(ctx, testConfirmation(nil, nil))

	assert.True(t, report.PaymentData.IsGeneratedReference())
	assert.False(t, report.WhatsAppResults.CustomerSent)
	assert.Nil(t, report.WhatsAppResults.CustomerPhone)
	assert.True(t, report.WhatsAppResults.AdminSent)
	assert.Equal(t, domain.OutcomeSuccess, report.WhatsAppResults.Status)
	assert.True(t, report.Success)
	messaging.AssertNotCalled(t, "SendCustomerConfirmation", ctx, mock.Anything)
}

// recordingChannel records call order; used for ordering assertions
type recordingChannel struct {
	name        string
	calls       *[]string
	customerErr error
	adminErr    error
}

func (r *recordingChannel) SendCustomerConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	*r.calls = append(*r.calls, r.name+":customer")
	return r.customerErr
}

func (r *recordingChannel) SendAdminConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	*r.calls = append(*r.calls, r.name+":admin")
	return r.adminErr
}
