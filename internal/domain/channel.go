package domain

import "context"

// EmailChannel delivers order confirmations over email. Implementations
// report failure by returning an error; the dispatcher converts errors into
// outcome data and never lets them escape.
type EmailChannel interface {
	SendCustomerConfirmation(ctx context.Context, c *ConfirmationContext) error
	SendAdminConfirmation(ctx context.Context, c *ConfirmationContext) error
}

// MessagingChannel delivers order confirmations over instant messaging
type MessagingChannel interface {
	SendCustomerConfirmation(ctx context.Context, c *ConfirmationContext) error
	SendAdminConfirmation(ctx context.Context, c *ConfirmationContext) error
}
