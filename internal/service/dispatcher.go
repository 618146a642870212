package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/insider-one/order-confirmation-service/internal/domain"
)

// MetricsRecorder receives dispatch and send counters. Implemented by
// handler.Metrics; nil disables recording.
type MetricsRecorder interface {
	ObserveDispatch(success bool, duration time.Duration)
	CountSend(channel, recipient, result string)
}

// Dispatcher sends a purchase confirmation through the email and messaging
// channels and aggregates a combined outcome. Channel failures are absorbed
// into the report and never abort the sibling channel: each sub-send is
// attempted behind a boundary that converts errors (and panics from channel
// implementations) into outcome data.
type Dispatcher struct {
	email           domain.EmailChannel
	messaging       domain.MessagingChannel
	logger          *slog.Logger
	defaultCurrency string

	metrics         MetricsRecorder
	reportBroadcast func(report *domain.DispatchReport)
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	email domain.EmailChannel,
	messaging domain.MessagingChannel,
	defaultCurrency string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		email:           email,
		messaging:       messaging,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// SetMetrics sets the metrics recorder
func (d *Dispatcher) SetMetrics(m MetricsRecorder) {
	d.metrics = m
}

// SetReportBroadcast sets the function used to publish finished reports
func (d *Dispatcher) SetReportBroadcast(fn func(report *domain.DispatchReport)) {
	d.reportBroadcast = fn
}

// Dispatch runs both channels sequentially, email first, customer before
// admin within each channel. The overall success flag is an inclusive OR:
// true when at least one channel fully succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, c *domain.ConfirmationContext) *domain.DispatchReport {
	start := time.Now()

	report := &domain.DispatchReport{
		Order:           c.Summary(d.defaultCurrency),
		PaymentData:     c.Payment,
		EmailResults:    d.dispatchEmail(ctx, c),
		WhatsAppResults: d.dispatchMessaging(ctx, c),
		DispatchedAt:    start.UTC(),
	}
	report.Success = report.EmailResults.Status == domain.OutcomeSuccess ||
		report.WhatsAppResults.Status == domain.OutcomeSuccess

	if d.metrics != nil {
		d.metrics.ObserveDispatch(report.Success, time.Since(start))
	}
	if d.reportBroadcast != nil {
		d.reportBroadcast(report)
	}

	d.logger.Info("order confirmation dispatched",
		"order_id", c.Order.ID,
		"order_number", c.Order.OrderNumber,
		"success", report.Success,
		"email_status", report.EmailResults.Status,
		"whatsapp_status", report.WhatsAppResults.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, c *domain.ConfirmationContext) domain.EmailResult {
	result := domain.EmailResult{Status: domain.OutcomeSuccess}

	if err := d.attempt(ctx, c, "email", "customer", c.Customer.Email, d.email.SendCustomerConfirmation); err != nil {
		result.Status = domain.OutcomeError
		result.Error = err.Error()
	} else {
		result.CustomerSent = true
	}

	// Admin send is attempted even when the customer send failed
	if err := d.attempt(ctx, c, "email", "admin", "", d.email.SendAdminConfirmation); err != nil {
		result.Status = domain.OutcomeError
		if result.Error == "" {
			result.Error = err.Error()
		}
	} else {
		result.AdminSent = true
	}

	return result
}

func (d *Dispatcher) dispatchMessaging(ctx context.Context, c *domain.ConfirmationContext) domain.WhatsAppResult {
	result := domain.WhatsAppResult{Status: domain.OutcomeSuccess}

	if c.Customer.HasPhone() {
		result.CustomerPhone = c.Customer.Phone
		if err := d.attempt(ctx, c, "whatsapp", "customer", *c.Customer.Phone, d.messaging.SendCustomerConfirmation); err != nil {
			result.Status = domain.OutcomeError
			result.Error = err.Error()
		} else {
			result.CustomerSent = true
		}
	} else {
		// Skipped, not failed: no phone on file
		d.logger.Info("whatsapp customer send skipped",
			"order_id", c.Order.ID,
			"reason", "no phone on file",
		)
	}

	if err := d.attempt(ctx, c, "whatsapp", "admin", "", d.messaging.SendAdminConfirmation); err != nil {
		result.Status = domain.OutcomeError
		if result.Error == "" {
			result.Error = err.Error()
		}
	} else {
		result.AdminSent = true
	}

	return result
}

// attempt runs a single sub-send. The returned error is the only way a
// failure leaves this boundary: errors are recorded, logged and counted,
// panics become errors.
func (d *Dispatcher) attempt(
	ctx context.Context,
	c *domain.ConfirmationContext,
	channel, recipient, target string,
	send func(context.Context, *domain.ConfirmationContext) error,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel panic: %v", r)
		}
		if err != nil {
			d.logger.Error("send failed",
				"order_id", c.Order.ID,
				"channel", channel,
				"recipient", recipient,
				"error", err,
			)
		}
		if d.metrics != nil {
			result := "success"
			if err != nil {
				result = "error"
			}
			d.metrics.CountSend(channel, recipient, result)
		}
	}()

	d.logger.Info("attempting send",
		"order_id", c.Order.ID,
		"order_number", c.Order.OrderNumber,
		"channel", channel,
		"recipient", recipient,
		"target", target,
		"payment_reference", c.Payment.Reference,
	)

	return send(ctx, c)
}
