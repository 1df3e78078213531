package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/pkg/database"
	"github.com/openkj/songbook-api/pkg/logger"
	"github.com/openkj/songbook-api/prometheus"
	"go.uber.org/zap"
)

// Subscription events with many line items run large; a truncated body
// would fail signature verification and make Stripe retry forever
const webhookMaxBody = 1 << 20

// StripeWebhook verifies a webhook delivery and mirrors subscription
// lifecycle events into the local Subscription row. This handler is the
// only writer of Subscription.Status.
func StripeWebhook(c echo.Context) error {
	log := logger.FromContext(c)

	if billingClient == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "billing is not configured"})
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBody))
	if err != nil {
		prometheus.RecordWebhook("unknown", "read_error")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to read payload"})
	}

	event, err := billingClient.VerifyWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn("Webhook signature verification failed", zap.Error(err))
		prometheus.RecordWebhook("unknown", "bad_signature")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	if event.Subscription == nil {
		// Not a subscription event; acknowledge and move on
		prometheus.RecordWebhook(event.Type, "ignored")
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	update := event.Subscription

	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if err := database.GetDB().
		Where("stripe_customer_id = ?", update.CustomerID).
		First(&user).Error; err != nil {
		log.Warn("Webhook for unknown customer", zap.String("customer_id", update.CustomerID))
		prometheus.RecordWebhook(event.Type, "unknown_customer")
		// Acknowledge so the provider stops retrying a delivery we can
		// never process
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	sub := model.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: update.SubscriptionID,
		StripePriceID:        update.PriceID,
		Status:               update.Status,
		CurrentPeriodEnd:     update.CurrentPeriodEnd,
		CancelAtPeriodEnd:    update.CancelAtPeriodEnd,
	}

	var existing model.Subscription
	result := database.GetDB().Where("user_id = ?", user.ID).First(&existing)
	if result.Error == nil {
		sub.ID = existing.ID
		err = database.GetDB().Model(&existing).Updates(map[string]interface{}{
			"stripe_subscription_id": sub.StripeSubscriptionID,
			"stripe_price_id":        sub.StripePriceID,
			"status":                 sub.Status,
			"current_period_end":     sub.CurrentPeriodEnd,
			"cancel_at_period_end":   sub.CancelAtPeriodEnd,
		}).Error
	} else {
		err = database.GetDB().Create(&sub).Error
	}
	if err != nil {
		log.Error("Failed to mirror subscription", zap.Error(err), zap.Uint("user_id", user.ID))
		prometheus.RecordWebhook(event.Type, "db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record subscription"})
	}

	log.Info("Subscription mirrored",
		zap.Uint("user_id", user.ID),
		zap.String("status", sub.Status),
		zap.String("event_type", event.Type))
	prometheus.RecordWebhook(event.Type, "processed")
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
