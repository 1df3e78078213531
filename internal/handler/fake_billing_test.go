package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/openkj/songbook-api/internal/billing"
)

// fakeBilling is an in-memory billing.Client for handler tests
type fakeBilling struct {
	customers    int
	prices       []billing.Price
	checkoutURL  string
	portalURL    string
	webhookEvent *billing.WebhookEvent
	webhookErr   error
	failCustomer bool
	lastPayload  []byte
}

func (f *fakeBilling) CreateCustomer(_ context.Context, email, name string) (string, error) {
	if f.failCustomer {
		return "", errors.New("billing provider unavailable")
	}
	f.customers++
	return "cus_test_" + email, nil
}

func (f *fakeBilling) ListPrices(_ context.Context) ([]billing.Price, error) {
	return f.prices, nil
}

func (f *fakeBilling) CreateCheckoutSession(_ context.Context, customerID, priceID string) (string, error) {
	if customerID == "" || priceID == "" {
		return "", errors.New("missing customer or price")
	}
	return f.checkoutURL, nil
}

func (f *fakeBilling) CreatePortalSession(_ context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", errors.New("missing customer")
	}
	return f.portalURL, nil
}

func (f *fakeBilling) VerifyWebhook(payload []byte, _ string) (*billing.WebhookEvent, error) {
	f.lastPayload = payload
	if f.webhookErr != nil {
		return nil, f.webhookErr
	}
	return f.webhookEvent, nil
}

// useFakeBilling wires a fake billing client for the duration of a test
func useFakeBilling(t *testing.T, f *fakeBilling) {
	t.Helper()
	InitBilling(f)
	t.Cleanup(func() { InitBilling(nil) })
}
