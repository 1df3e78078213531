// Package billing wraps the payments provider. Handlers and the webhook
// endpoint talk to the Client interface so tests can substitute a fake.
package billing

import (
	"context"
	"time"
)

// Price is a purchasable subscription price
type Price struct {
	ID         string `json:"id"`
	Nickname   string `json:"nickname"`
	Currency   string `json:"currency"`
	UnitAmount int64  `json:"unit_amount"`
	Interval   string `json:"interval"`
}

// SubscriptionUpdate carries the subscription fields mirrored into the
// local database from provider webhooks
type SubscriptionUpdate struct {
	CustomerID        string
	SubscriptionID    string
	PriceID           string
	Status            string
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// WebhookEvent is a verified webhook delivery. Subscription is non-nil
// for subscription lifecycle events.
type WebhookEvent struct {
	Type         string
	Subscription *SubscriptionUpdate
}

// Client is the payments provider boundary
type Client interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	ListPrices(ctx context.Context) ([]Price, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
