package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/insider-one/order-confirmation-service/internal/domain"
	"github.com/insider-one/order-confirmation-service/internal/service"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindLatestPaid(ctx context.Context) (*domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

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

type confirmationFixture struct {
	handler   *ConfirmationHandler
	orders    *MockOrderRepository
	email     *MockEmailChannel
	messaging *MockMessagingChannel
}

func newConfirmationFixture() *confirmationFixture {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	orders := new(MockOrderRepository)
	email := new(MockEmailChannel)
	messaging := new(MockMessagingChannel)

	builder := service.NewContextBuilder(orders, "USD", logger)
	dispatcher := service.NewDispatcher(email, messaging, "USD", logger)

	return &confirmationFixture{
		handler:   NewConfirmationHandler(builder, dispatcher),
		orders:    orders,
		email:     email,
		messaging: messaging,
	}
}

func paidOrder() *domain.Order {
	paidAt := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	phone := "+905551234567"
	txnRef := "txn-abc-123"
	return &domain.Order{
		ID:             1042,
		OrderNumber:    "ORD-1042",
		CustomerID:     7,
		TotalAmount:    decimal.RequireFromString("149.90"),
		Status:         domain.PaymentPaid,
		PaidAt:         &paidAt,
		TransactionRef: &txnRef,
		Customer: &domain.Customer{
			ID:    7,
			Name:  "Ada Yilmaz",
			Email: "a@b.com",
			Phone: &phone,
		},
		Currency: &domain.Currency{ID: 1, Code: "TRY"},
	}
}

func (f *confirmationFixture) assertNoSends(t *testing.T) {
	t.Helper()
	f.email.AssertNotCalled(t, "SendCustomerConfirmation", mock.Anything, mock.Anything)
	f.email.AssertNotCalled(t, "SendAdminConfirmation", mock.Anything, mock.Anything)
	f.messaging.AssertNotCalled(t, "SendCustomerConfirmation", mock.Anything, mock.Anything)
	f.messaging.AssertNotCalled(t, "SendAdminConfirmation", mock.Anything, mock.Anything)
}

func TestConfirmationHandler_Dispatch(t *testing.T) {
	t.Run("dispatches confirmation for a known order", func(t *testing.T) {
		f := newConfirmationFixture()
		f.orders.On("FindByID", mock.Anything, int64(1042)).Return(paidOrder(), nil).Once()
		f.email.On("SendCustomerConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
		f.email.On("SendAdminConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
		f.messaging.On("SendCustomerConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
		f.messaging.On("SendAdminConfirmation", mock.Anything, mock.Anything).Return(nil).Once()

		body := bytes.NewBufferString(`{"order_id": 1042}`)
		req := httptest.NewRequest(http.MethodPost, "/test/order-confirmations", body)
		w := httptest.NewRecorder()

		f.handler.Dispatch(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp Response
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "order confirmation dispatched", resp.Message)

		data, ok := resp.Data.(map[string]any)
		assert.True(t, ok)
		assert.Contains(t, data, "order")
		assert.Contains(t, data, "payment_data")
		assert.Contains(t, data, "email_results")
		assert.Contains(t, data, "whatsapp_results")

		f.email.AssertExpectations(t)
		f.messaging.AssertExpectations(t)
	})

	t.Run("partial channel failure still answers 200", func(t *testing.T) {
		f := newConfirmationFixture()
		f.orders.On("FindByID", mock.Anything, int64(1042)).Return(paidOrder(), nil).Once()
		f.email.On("SendCustomerConfirmation", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		f.email.On("SendAdminConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
		f.messaging.On("SendCustomerConfirmation", mock.Anything, mock.Anything).Return(nil).Once()
		f.messaging.On("SendAdminConfirmation", mock.Anything, mock.Anything).Return(nil).Once()

		body := bytes.NewBufferString(`{"order_id": 1042}`)
		req := httptest.NewRequest(http.MethodPost, "/test/order-confirmations", body)
		w := httptest.NewRecorder()

		f.handler.Dispatch(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp Response
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "order confirmation dispatched with partial failures", resp.Message)
	})

	t.Run("all channels failing answers 200 with success false", func(t *testing.T) {
		f := newConfirmationFixture()
		f.orders.On("FindByID", mock.Anything, int64(1042)).Return(paidOrder(), nil).Once()
		f.email.On("SendCustomerConfirmation", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		f.email.On("SendAdminConfirmation", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		f.messaging.On("SendCustomerConfirmation", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		f.messaging.On("SendAdminConfirmation", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		body := bytes.NewBufferString(`{"order_id": 1042}`)
		req := httptest.NewRequest(http.MethodPost, "/test/order-confirmations", body)
		w := httptest.NewRecorder()

		f.handler.Dispatch(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp Response
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "order confirmation failed on all channels", resp.Message)
	})

	t.Run("unknown order answers 404 before any send", func(t *testing.T) {
		f := newConfirmationFixture()
		f.orders.On("FindByID", mock.Anything, int64(999)).Return(nil, domain.ErrNotFound).Once()

		body := bytes.NewBufferString(`{"order_id": 999}`)
		req := httptest.NewRequest(http.MethodPost, "/test/order-confirmations", body)
		w := httptest.NewRecorder()

		f.handler.Dispatch(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp Response
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)

		f.assertNoSends(t)
	})

	t.Run("malformed body answers 400 before any send", func(t *testing.T) {
		f := newConfirmationFixture()

		body := bytes.NewBufferString(`{"order_id": `)
		req := httptest.NewRequest(http.MethodPost, "/test/order-confirmations", body)
		w := httptest.NewRecorder()

		f.handler.Dispatch(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		f.assertNoSends(t)
	})

	t.Run("missing order_id answers 400", func(t *testing.T) {
		f := newConfirmationFixture()

		body := bytes.NewBufferString(`{}`)
		req := httptest.NewRequest(http.MethodPost, "/test/order-confirmations", body)
		w := httptest.NewRecorder()

		f.handler.Dispatch(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp Response
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		f.assertNoSends(t)
	})
}

func TestConfirmationHandler_Sample(t *testing.T) {
	t.Run("returns the latest paid order", func(t *testing.T) {
		f := newConfirmationFixture()
		f.orders.On("FindLatestPaid", mock.Anything).Return(paidOrder(), nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/test/order-confirmations/sample", nil)
		w := httptest.NewRecorder()

		f.handler.Sample(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp Response
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Success)

		data, ok := resp.Data.(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, float64(1042), data["id"])
		assert.Equal(t, "ORD-1042", data["order_number"])
		assert.Equal(t, "TRY", data["currency"])
	})

	t.Run("no paid orders answers 404", func(t *testing.T) {
		f := newConfirmationFixture()
		f.orders.On("FindLatestPaid", mock.Anything).Return(nil, domain.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/test/order-confirmations/sample", nil)
		w := httptest.NewRecorder()

		f.handler.Sample(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp Response
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.Success)
	})
}
