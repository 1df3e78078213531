package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/pkg/database"
	"github.com/openkj/songbook-api/pkg/logger"
	"github.com/openkj/songbook-api/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyMiddleware authenticates desktop sync requests via the X-Api-Key
// header. The key is looked up by prefix and verified against the stored
// hash; revoked keys are rejected.
func APIKeyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		token := c.Request().Header.Get("X-Api-Key")
		if token == "" {
			prometheus.RecordAuthError("missing_api_key")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing API key"})
		}

		prefix, secret, ok := model.ParseKey(token)
		if !ok {
			prometheus.RecordAuthError("malformed_api_key")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid API key"})
		}

		defer prometheus.TrackDBOperation("query")(time.Now())
		var key model.ApiKey
		result := database.GetDB().
			Where("prefix = ? AND status = ?", prefix, model.KeyStatusActive).
			First(&key)
		if result.Error != nil {
			log.Warn("API key not found or revoked", zap.String("prefix", prefix))
			prometheus.RecordAuthError("unknown_api_key")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid API key"})
		}

		if err := bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(secret)); err != nil {
			log.Warn("API key secret mismatch", zap.String("prefix", prefix))
			prometheus.RecordAuthError("invalid_api_key")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid API key"})
		}

		// Best effort; a stale last_used_at is not worth failing the request
		now := time.Now()
		if err := database.GetDB().Model(&key).UpdateColumn("last_used_at", now).Error; err != nil {
			log.Warn("Failed to update API key last_used_at", zap.Error(err))
		}

		prometheus.RecordKeyOperation("auth")
		c.Set("user_id", key.UserID)
		c.Set("api_key_id", key.ID)

		return next(c)
	}
}
