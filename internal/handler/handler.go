package handler

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/openkj/songbook-api/internal/billing"
	"github.com/openkj/songbook-api/internal/places"
	"github.com/openkj/songbook-api/internal/storage"
	"github.com/openkj/songbook-api/prometheus"
)

// Package-level collaborators, wired once at startup
var (
	billingClient   billing.Client
	placesClient    places.Client
	attachmentStore *storage.AttachmentStore
)

// InitBilling wires the payments provider client
func InitBilling(c billing.Client) {
	billingClient = c
}

// InitPlaces wires the places provider client
func InitPlaces(c places.Client) {
	placesClient = c
}

// InitAttachments wires the attachment store
func InitAttachments(s *storage.AttachmentStore) {
	attachmentStore = s
}

// MetricsHandler exposes the Prometheus metrics endpoint
func MetricsHandler(c echo.Context) error {
	h := prometheus.GetPrometheusHandler()
	h.ServeHTTP(c.Response(), c.Request())
	return nil
}

// isUniqueViolation matches the unique-constraint errors raised by
// Postgres and by SQLite under test
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
