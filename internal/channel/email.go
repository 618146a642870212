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

// EmailGateway implements domain.EmailChannel against an HTTP mail API
type EmailGateway struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	from      string
	admins    []string
	storeName string
}

// NewEmailGateway creates a new EmailGateway
func NewEmailGateway(cfg config.EmailConfig, storeName string) *EmailGateway {
	return &EmailGateway{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.APIURL,
		apiKey:    cfg.APIKey,
		from:      cfg.FromAddress,
		admins:    cfg.AdminRecipients,
		storeName: storeName,
	}
}

type emailMessage struct {
	From    string         `json:"from"`
	To      []string       `json:"to"`
	Subject string         `json:"subject"`
	Vars    map[string]any `json:"variables"`
}

// SendCustomerConfirmation sends the purchase confirmation to the buyer
func (g *EmailGateway) SendCustomerConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	if c.Customer == nil || c.Customer.Email == "" {
		return domain.NewValidationError("email", "customer email missing")
	}

	return g.send(ctx, emailMessage{
		From:    g.from,
		To:      []string{c.Customer.Email},
		Subject: fmt.Sprintf("%s - your order %s is confirmed", g.storeName, c.Order.OrderNumber),
		Vars:    g.messageVars(c),
	})
}

// SendAdminConfirmation notifies the configured admin recipients
func (g *EmailGateway) SendAdminConfirmation(ctx context.Context, c *domain.ConfirmationContext) error {
	if len(g.admins) == 0 {
		return domain.NewValidationError("email", "no admin recipients configured")
	}

	return g.send(ctx, emailMessage{
		From:    g.from,
		To:      g.admins,
		Subject: fmt.Sprintf("New paid order %s", c.Order.OrderNumber),
		Vars:    g.messageVars(c),
	})
}

func (g *EmailGateway) messageVars(c *domain.ConfirmationContext) map[string]any {
	vars := map[string]any{
		"order_number":      c.Order.OrderNumber,
		"customer_name":     c.Customer.Name,
		"amount":            c.Payment.Amount.StringFixed(2),
		"currency":          c.Payment.Currency,
		"payment_reference": c.Payment.Reference,
		"auth_code":         c.Payment.AuthCode,
		"processed_at":      c.Payment.ProcessedAt,
	}
	if c.LinkedAccount != nil {
		vars["account_domain"] = c.LinkedAccount.Domain
	}
	if c.BillingProfile != nil && c.BillingProfile.Organization != "" {
		vars["organization"] = c.BillingProfile.Organization
	}
	return vars
}

func (g *EmailGateway) send(ctx context.Context, msg emailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return domain.NewProviderError(0, fmt.Sprintf("request failed: %v", err), true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return domain.NewProviderError(resp.StatusCode, string(respBody), retryable)
	}

	return nil
}
