package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/openkj/songbook-api/internal/billing"
	"github.com/openkj/songbook-api/internal/handler"
	"github.com/openkj/songbook-api/internal/middleware"
	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/internal/places"
	"github.com/openkj/songbook-api/internal/storage"
	"github.com/openkj/songbook-api/pkg/config"
	"github.com/openkj/songbook-api/pkg/database"
	"github.com/openkj/songbook-api/pkg/jwtutil"
	"github.com/openkj/songbook-api/pkg/logger"
	"github.com/openkj/songbook-api/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "songbook-api",
	})
	log := logger.GetLogger()
	log.Info("Starting songbook service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(model.All()...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Wire external collaborators
	if cfg.Stripe.SecretKey != "" {
		handler.InitBilling(billing.NewStripeClient(&cfg.Stripe))
		log.Info("Stripe billing client initialized")
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, billing endpoints disabled")
	}
	if cfg.Places.APIKey != "" {
		placesClient, err := places.NewGoogleClient(cfg.Places.APIKey)
		if err != nil {
			log.Fatal("Failed to initialize places client", zap.Error(err))
		}
		handler.InitPlaces(placesClient)
		log.Info("Places client initialized")
	} else {
		log.Warn("PLACES_API_KEY not set, venue search disabled")
	}
	handler.InitAttachments(storage.NewAttachmentStore(cfg.Attachments.Dir, cfg.Attachments.MaxBytes))

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)

	// Stripe webhook - authenticated by signature, not JWT
	e.POST("/webhooks/stripe", handler.StripeWebhook)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// User management
	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.PATCH("/profile", handler.UpdateProfile)
	users.POST("/change-password", handler.ChangePassword)

	// Venue management
	venues := api.Group("/venues")
	venues.POST("", handler.CreateVenue)
	venues.GET("", handler.ListVenues)
	venues.GET("/search", handler.SearchVenuePlaces)
	venues.GET("/:id", handler.GetVenue)
	venues.PATCH("/:id", handler.UpdateVenue)
	venues.DELETE("/:id", handler.DeleteVenue)
	venues.POST("/:id/accepting", handler.SetVenueAccepting)

	// System numbering
	systems := api.Group("/systems")
	systems.POST("", handler.CreateSystem)
	systems.GET("", handler.ListSystems)
	systems.DELETE("/:id", handler.DeleteSystem)

	// API key management
	keys := api.Group("/keys")
	keys.POST("", handler.CreateApiKey)
	keys.GET("", handler.ListApiKeys)
	keys.DELETE("/:id", handler.RevokeApiKey)
	keys.POST("/:id/roll", handler.RollApiKey)

	// Billing
	billingGroup := api.Group("/billing")
	billingGroup.GET("/prices", handler.ListPrices)
	billingGroup.POST("/checkout", handler.CreateCheckout)
	billingGroup.POST("/portal", handler.CreatePortal)
	billingGroup.GET("/subscription", handler.GetSubscription)

	// Support tickets
	support := api.Group("/support")
	support.POST("/tickets", handler.CreateTicket)
	support.GET("/tickets", handler.ListTickets)
	support.GET("/tickets/:id", handler.GetTicket)
	support.PATCH("/tickets/:id", handler.UpdateTicket)
	support.POST("/tickets/:id/messages", handler.AddTicketMessage)
	support.GET("/attachments/:id", handler.DownloadAttachment)

	// Staff-only administration
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin)
	admin.GET("/users", handler.ListUsers)
	admin.GET("/users/:id/notes", handler.ListUserNotes)
	admin.POST("/users/:id/notes", handler.CreateUserNote)
	admin.DELETE("/notes/:id", handler.DeleteUserNote)

	// Desktop sync - authenticated by API key
	sync := e.Group("/sync")
	sync.Use(middleware.APIKeyMiddleware)
	sync.GET("/state", handler.SyncState)
	sync.GET("/venues", handler.SyncVenues)
	sync.PUT("/songs", handler.ReplaceSongs)
	sync.GET("/requests", handler.SyncRequests)
	sync.POST("/requests", handler.SubmitRequest)
	sync.DELETE("/requests/:id", handler.ClearRequest)
	sync.POST("/accepting", handler.SyncSetAccepting)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
