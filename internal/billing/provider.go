// Package billing integrates Stripe subscriptions: checkout and portal
// session creation plus the webhook that mutates user plans.
package billing

import "context"

// Event is the provider-agnostic view of a billing webhook event. CustomerID
// and CustomerEmail identify the account; PriceID selects the plan on
// subscription events.
type Event struct {
	Type          string
	CustomerID    string
	CustomerEmail string
	PriceID       string
}

// Provider creates hosted billing sessions and authenticates webhooks.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, email, priceID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	VerifyWebhook(payload []byte, sigHeader string) error
	ParseEvent(payload []byte) (*Event, error)
}
