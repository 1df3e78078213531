package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/openkj/songbook-api/internal/middleware"
	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/pkg/database"
	"github.com/openkj/songbook-api/pkg/logger"
	"github.com/openkj/songbook-api/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateApiKey issues a new API key. The plaintext token is returned in
// this response and never again.
func CreateApiKey(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordKeyOperation("issue")

	var req struct {
		Label string `json:"label"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	key, plaintext, err := issueKey(database.GetDB(), userID, req.Label)
	if err != nil {
		log.Error("Failed to create API key", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create API key"})
	}

	log.Info("API key issued", zap.Uint("user_id", userID), zap.String("prefix", key.Prefix))
	return c.JSON(http.StatusCreated, echo.Map{
		"key":     plaintext, // Shown exactly once
		"api_key": key,
	})
}

// ListApiKeys lists the customer's keys without secrets
func ListApiKeys(c echo.Context) error {
	userID := middleware.UserID(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var keys []model.ApiKey
	if err := database.GetDB().
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error; err != nil {
		logger.FromContext(c).Error("Failed to list API keys", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list API keys"})
	}

	return c.JSON(http.StatusOK, echo.Map{"api_keys": keys})
}

// RevokeApiKey flips a key to revoked. Revoked keys stay visible in the
// list for auditability.
func RevokeApiKey(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordKeyOperation("revoke")

	key, ok := findOwnedKey(c, userID)
	if !ok {
		return nil
	}
	if key.Status == model.KeyStatusRevoked {
		return c.JSON(http.StatusConflict, echo.Map{"error": "API key already revoked"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(key).Update("status", model.KeyStatusRevoked).Error; err != nil {
		log.Error("Failed to revoke API key", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to revoke API key"})
	}

	log.Info("API key revoked", zap.Uint("user_id", userID), zap.String("prefix", key.Prefix))
	return c.JSON(http.StatusOK, echo.Map{"message": "API key revoked"})
}

// RollApiKey revokes a key and issues its replacement in one
// transaction, so there is no window with neither key valid.
func RollApiKey(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordKeyOperation("roll")

	key, ok := findOwnedKey(c, userID)
	if !ok {
		return nil
	}
	if key.Status == model.KeyStatusRevoked {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot roll a revoked API key"})
	}

	var newKey *model.ApiKey
	var plaintext string
	defer prometheus.TrackDBOperation("update")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(key).Update("status", model.KeyStatusRevoked).Error; err != nil {
			return err
		}
		var err error
		newKey, plaintext, err = issueKey(tx, userID, key.Label)
		return err
	})
	if err != nil {
		log.Error("Failed to roll API key", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to roll API key"})
	}

	log.Info("API key rolled",
		zap.Uint("user_id", userID),
		zap.String("old_prefix", key.Prefix),
		zap.String("new_prefix", newKey.Prefix))
	return c.JSON(http.StatusCreated, echo.Map{
		"key":     plaintext, // Shown exactly once
		"api_key": newKey,
	})
}

// issueKey generates, hashes, and stores a new key, returning the row
// and the plaintext token
func issueKey(db *gorm.DB, userID uint, label string) (*model.ApiKey, string, error) {
	prefix, secret := model.NewKeyMaterial()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	key := model.ApiKey{
		UserID: userID,
		Prefix: prefix,
		Hash:   string(hash),
		Label:  label,
		Status: model.KeyStatusActive,
	}
	if err := db.Create(&key).Error; err != nil {
		return nil, "", err
	}
	return &key, model.FormatKey(prefix, secret), nil
}

// findOwnedKey loads the key in the :id path param and verifies the
// caller owns it. On failure the error response has already been written
// and ok is false.
func findOwnedKey(c echo.Context, userID uint) (*model.ApiKey, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid API key id"})
		return nil, false
	}

	var key model.ApiKey
	result := database.GetDB().Where("id = ? AND user_id = ?", id, userID).First(&key)
	if result.Error != nil {
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "API key not found"})
		return nil, false
	}
	return &key, true
}
