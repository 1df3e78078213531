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
	"gorm.io/gorm"
)

// CreateSystem assigns the next sequential system number for the
// customer. The max+1 computation and the insert run in one transaction;
// the (user_id, open_kj_system_id) unique index backstops a concurrent
// assignment, in which case the transaction is retried once.
func CreateSystem(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSystemOperation("create")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var system model.System
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		system = model.System{UserID: userID, Name: req.Name}
		err = database.GetDB().Transaction(func(tx *gorm.DB) error {
			var maxID int
			row := tx.Model(&model.System{}).
				Where("user_id = ?", userID).
				Select("COALESCE(MAX(open_kj_system_id), 0)").
				Row()
			if err := row.Scan(&maxID); err != nil {
				return err
			}
			system.OpenKjSystemID = maxID + 1
			if system.Name == "" {
				system.Name = "System " + strconv.Itoa(system.OpenKjSystemID)
			}
			return tx.Create(&system).Error
		})
		if err == nil || !isUniqueViolation(err) {
			break
		}
		prometheus.RecordSystemOperation("retry")
		log.Warn("System number collision, retrying", zap.Uint("user_id", userID))
	}
	if err != nil {
		log.Error("Failed to create system", zap.Error(err))
		if isUniqueViolation(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "system number conflict, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create system"})
	}

	log.Info("System created",
		zap.Uint("user_id", userID),
		zap.Int("open_kj_system_id", system.OpenKjSystemID))
	return c.JSON(http.StatusCreated, system)
}

// ListSystems lists the customer's systems in numbering order
func ListSystems(c echo.Context) error {
	userID := middleware.UserID(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var systems []model.System
	if err := database.GetDB().
		Where("user_id = ?", userID).
		Order("open_kj_system_id").
		Find(&systems).Error; err != nil {
		logger.FromContext(c).Error("Failed to list systems", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list systems"})
	}

	return c.JSON(http.StatusOK, echo.Map{"systems": systems})
}

// DeleteSystem removes a system. Systems must be deleted in descending
// numbering order so the sequence stays gapless, and the last system
// cannot be deleted.
func DeleteSystem(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSystemOperation("delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid system id"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		var system model.System
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&system).Error; err != nil {
			return err
		}

		var maxID int
		row := tx.Model(&model.System{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(open_kj_system_id), 0)").
			Row()
		if err := row.Scan(&maxID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.System{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}

		if count <= 1 {
			return errLastSystem
		}
		if system.OpenKjSystemID != maxID {
			return errSystemOrder
		}

		return tx.Delete(&system).Error
	})
	switch err {
	case nil:
		log.Info("System deleted", zap.Uint("user_id", userID), zap.Uint64("system_id", id))
		return c.JSON(http.StatusOK, echo.Map{"message": "system deleted"})
	case errLastSystem:
		return c.JSON(http.StatusConflict, echo.Map{"error": "the last system cannot be deleted"})
	case errSystemOrder:
		return c.JSON(http.StatusConflict, echo.Map{"error": "systems must be deleted in descending order"})
	case gorm.ErrRecordNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "system not found"})
	default:
		log.Error("Failed to delete system", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete system"})
	}
}
