package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/openkj/songbook-api/internal/middleware"
	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/pkg/database"
	"github.com/openkj/songbook-api/pkg/logger"
	"github.com/openkj/songbook-api/prometheus"
	"go.uber.org/zap"
)

// ListPrices returns the purchasable subscription prices
func ListPrices(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordBillingOperation("prices")

	if billingClient == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "billing is not configured"})
	}

	prices, err := billingClient.ListPrices(c.Request().Context())
	if err != nil {
		log.Error("Failed to list prices", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to list prices"})
	}

	return c.JSON(http.StatusOK, echo.Map{"prices": prices})
}

// CreateCheckout starts a hosted checkout session for a price and
// returns the redirect URL
func CreateCheckout(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordBillingOperation("checkout")

	if billingClient == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "billing is not configured"})
	}

	var req struct {
		PriceID string `json:"price_id"`
	}
	if err := c.Bind(&req); err != nil || req.PriceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_id is required"})
	}

	user, ok := findBillingUser(c, userID)
	if !ok {
		return nil
	}

	url, err := billingClient.CreateCheckoutSession(c.Request().Context(), user.StripeCustomerID, req.PriceID)
	if err != nil {
		log.Error("Failed to create checkout session", zap.Error(err), zap.Uint("user_id", userID))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create checkout session"})
	}

	log.Info("Checkout session created", zap.Uint("user_id", userID), zap.String("price_id", req.PriceID))
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// CreatePortal starts a hosted billing portal session and returns the
// redirect URL
func CreatePortal(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordBillingOperation("portal")

	if billingClient == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "billing is not configured"})
	}

	user, ok := findBillingUser(c, userID)
	if !ok {
		return nil
	}

	url, err := billingClient.CreatePortalSession(c.Request().Context(), user.StripeCustomerID)
	if err != nil {
		log.Error("Failed to create portal session", zap.Error(err), zap.Uint("user_id", userID))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create portal session"})
	}

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// GetSubscription returns the local mirror of the customer's subscription
func GetSubscription(c echo.Context) error {
	userID := middleware.UserID(c)
	prometheus.RecordBillingOperation("subscription")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var sub model.Subscription
	if err := database.GetDB().Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no subscription"})
	}

	return c.JSON(http.StatusOK, sub)
}

// findBillingUser loads the caller's user row and checks it has a
// billing customer attached. On failure the error response has already
// been written and ok is false.
func findBillingUser(c echo.Context, userID uint) (*model.User, bool) {
	var user model.User
	if err := database.GetDB().First(&user, userID).Error; err != nil {
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		return nil, false
	}
	if user.StripeCustomerID == "" {
		_ = c.JSON(http.StatusConflict, echo.Map{"error": "no billing customer for this account"})
		return nil, false
	}
	return &user, true
}
