package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/insider-one/order-confirmation-service/internal/config"
	"github.com/insider-one/order-confirmation-service/internal/domain"
)

// WhatsAppClient implements domain.MessagingChannel against a WhatsApp
// Cloud style messages API
type WhatsAppClient struct {
	client    *http.Client
	baseURL   string
	token     string
	admins    []string
	storeName string
}

// NewWhatsAppClient creates a new WhatsAppClient
func NewWhatsAppClient(cfg config.WhatsAppConfig, storeName string) *WhatsAppClient {
	return &WhatsAppClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.APIURL,
		token:     cfg.AccessToken,
		admins:    cfg.AdminNumbers,
		storeName: storeName,
	}
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

// SendCustomerConfirmation messages the buyer. The dispatcher gates on
// phone presence; a missing phone here is still treated as an error so the
// client stays safe to call directly.
func (w *WhatsAppClient) SendCustomerConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	if !c.Customer.HasPhone() {
		return domain.NewValidationError("phone", "customer phone missing")
	}

	body := fmt.Sprintf(
		"%s: thanks %s! Your order %s (%s %s) is confirmed. Payment ref %s.",
		w.storeName, c.Customer.Name, c.Order.OrderNumber,
		c.Payment.Amount.StringFixed(2), c.Payment.Currency, c.Payment.Reference,
	)
	if c.LinkedAccount != nil {
		body += fmt.Sprintf(" Your account is live at %s.", c.LinkedAccount.Domain)
	}

	return w.send(ctx, *c.Customer.Phone, body)
}

// SendAdminConfirmation fans the notification out to every
// configured admin number. The first failure aborts the remaining sends and
// is reported as the channel error.
func (w *WhatsAppClient) SendAdminConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	if len(w.admins) == 0 {
		return domain.NewValidationError("phone", "no admin numbers configured")
	}

	body := fmt.Sprintf(
		"New paid order %s from %s: %s %s (ref %s, auth %s)",
		c.Order.OrderNumber, c.Customer.Name,
		c.Payment.Amount.StringFixed(2), c.Payment.Currency,
		c.Payment.Reference, c.Payment.AuthCode,
	)

	for _, number := range w.admins {
		if err := w.send(ctx, number, body); err != nil {
			return err
		}
	}

	return nil
}

func (w *WhatsAppClient) send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsAppText{Body: body},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+w.token)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return domain.NewProviderError(0, fmt.Sprintf("request failed: %v", err), true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return domain.NewProviderError(resp.StatusCode, string(respBody), retryable)
	}

	return nil
}
