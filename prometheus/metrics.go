package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "songbook_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "songbook_register_total",
			Help: "Total number of customer registrations",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "login_failure", "invalid_token", "invalid_api_key" etc.
	)

	// Venue operation counter
	VenueOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_venue_operations_total",
			Help: "Total number of venue operations",
		},
		[]string{"operation"}, // "create", "update", "delete", "accepting", "search"
	)

	// System operation counter
	SystemOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_system_operations_total",
			Help: "Total number of system numbering operations",
		},
		[]string{"operation"}, // "create", "delete", "retry"
	)

	// API key operation counter
	KeyOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_apikey_operations_total",
			Help: "Total number of API key operations",
		},
		[]string{"operation"}, // "issue", "revoke", "roll", "auth"
	)

	// Billing operation counter
	BillingOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_billing_operations_total",
			Help: "Total number of billing operations",
		},
		[]string{"operation"}, // "checkout", "portal", "prices", "subscription"
	)

	// Stripe webhook counter
	WebhookCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_stripe_webhooks_total",
			Help: "Total number of Stripe webhook deliveries by type and result",
		},
		[]string{"type", "result"},
	)

	// Support ticket operation counter
	SupportOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_support_operations_total",
			Help: "Total number of support ticket operations",
		},
		[]string{"operation"}, // "create", "message", "update", "attachment"
	)

	// Desktop sync request counter
	SyncRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songbook_sync_requests_total",
			Help: "Total number of desktop sync requests by endpoint",
		},
		[]string{"endpoint"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songbook_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songbook_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active tokens
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "songbook_active_tokens",
			Help: "Number of currently active authentication tokens",
		},
	)

	// Service info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "songbook_info",
			Help: "Information about the songbook service",
		},
		[]string{"version"},
	)

	// Open support tickets
	OpenTicketsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "songbook_open_support_tickets",
			Help: "Number of currently open support tickets",
		},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(VenueOperationCounter)
	prometheus.MustRegister(SystemOperationCounter)
	prometheus.MustRegister(KeyOperationCounter)
	prometheus.MustRegister(BillingOperationCounter)
	prometheus.MustRegister(WebhookCounter)
	prometheus.MustRegister(SupportOperationCounter)
	prometheus.MustRegister(SyncRequestCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(OpenTicketsGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordVenueOperation records a venue operation
func RecordVenueOperation(operation string) {
	VenueOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordSystemOperation records a system numbering operation
func RecordSystemOperation(operation string) {
	SystemOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordKeyOperation records an API key operation
func RecordKeyOperation(operation string) {
	KeyOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordBillingOperation records a billing operation
func RecordBillingOperation(operation string) {
	BillingOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordWebhook records a Stripe webhook delivery
func RecordWebhook(eventType, result string) {
	WebhookCounter.With(prometheus.Labels{"type": eventType, "result": result}).Inc()
}

// RecordSupportOperation records a support ticket operation
func RecordSupportOperation(operation string) {
	SupportOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordSyncRequest records a desktop sync request
func RecordSyncRequest(endpoint string) {
	SyncRequestCounter.With(prometheus.Labels{"endpoint": endpoint}).Inc()
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// DecreaseActiveTokens decrements the active tokens gauge
func DecreaseActiveTokens() {
	ActiveTokensGauge.Dec()
}
