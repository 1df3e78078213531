package handler

import (
	"net/http"
	"strconv"
	"strings"
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

const songInsertBatchSize = 500

// SyncState returns the serial and accepting state the desktop client
// polls to decide whether to re-sync
func SyncState(c echo.Context) error {
	userID := middleware.UserID(c)
	prometheus.RecordSyncRequest("state")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var state model.State
	if err := database.GetDB().Where("user_id = ?", userID).First(&state).Error; err != nil {
		logger.FromContext(c).Error("Sync state missing", zap.Uint("user_id", userID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync state unavailable"})
	}

	return c.JSON(http.StatusOK, state)
}

// SyncVenues lists venues for the desktop client
func SyncVenues(c echo.Context) error {
	userID := middleware.UserID(c)
	prometheus.RecordSyncRequest("venues")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var venues []model.Venue
	if err := database.GetDB().Where("user_id = ?", userID).Order("name").Find(&venues).Error; err != nil {
		logger.FromContext(c).Error("Failed to list venues for sync", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list venues"})
	}

	return c.JSON(http.StatusOK, echo.Map{"venues": venues})
}

// ReplaceSongs replaces the customer's whole songbook with the uploaded
// entries. Delete, insert, and serial bump share one transaction so
// venue pages never see a half-replaced book.
func ReplaceSongs(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSyncRequest("songs")

	var req struct {
		Songs []struct {
			Artist string `json:"artist"`
			Title  string `json:"title"`
		} `json:"songs"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	songs := make([]model.Song, 0, len(req.Songs))
	for _, s := range req.Songs {
		artist := strings.TrimSpace(s.Artist)
		title := strings.TrimSpace(s.Title)
		if artist == "" && title == "" {
			continue
		}
		songs = append(songs, model.Song{
			UserID:   userID,
			Artist:   artist,
			Title:    title,
			Combined: artist + " - " + title,
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Song{}).Error; err != nil {
			return err
		}
		if len(songs) > 0 {
			if err := tx.CreateInBatches(songs, songInsertBatchSize).Error; err != nil {
				return err
			}
		}
		return model.IncrementSerial(tx, userID)
	})
	if err != nil {
		log.Error("Failed to replace songbook", zap.Error(err), zap.Uint("user_id", userID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to replace songbook"})
	}

	log.Info("Songbook replaced", zap.Uint("user_id", userID), zap.Int("songs", len(songs)))
	return c.JSON(http.StatusOK, echo.Map{"count": len(songs)})
}

// SyncRequests lists unprocessed song requests for the desktop client
func SyncRequests(c echo.Context) error {
	userID := middleware.UserID(c)
	prometheus.RecordSyncRequest("requests")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var requests []model.Request
	if err := database.GetDB().
		Where("user_id = ? AND processed = ?", userID, false).
		Order("request_time").
		Find(&requests).Error; err != nil {
		logger.FromContext(c).Error("Failed to list requests", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list requests"})
	}

	return c.JSON(http.StatusOK, echo.Map{"requests": requests})
}

// SubmitRequest creates a song request for a venue that is accepting
func SubmitRequest(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSyncRequest("submit")

	var req struct {
		VenueID   uint   `json:"venue_id"`
		Singer    string `json:"singer"`
		Artist    string `json:"artist"`
		Title     string `json:"title"`
		KeyChange int    `json:"key_change"`
		WaitTime  int    `json:"wait_time"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Singer == "" || (req.Artist == "" && req.Title == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "singer and song are required"})
	}

	var venue model.Venue
	if err := database.GetDB().
		Where("id = ? AND user_id = ?", req.VenueID, userID).
		First(&venue).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
	}
	if !venue.Accepting {
		return c.JSON(http.StatusConflict, echo.Map{"error": "venue is not accepting requests"})
	}

	request := model.Request{
		UserID:      userID,
		VenueID:     venue.ID,
		Singer:      req.Singer,
		Artist:      req.Artist,
		Title:       req.Title,
		KeyChange:   req.KeyChange,
		WaitTime:    req.WaitTime,
		RequestTime: time.Now(),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		return model.IncrementSerial(tx, userID)
	})
	if err != nil {
		log.Error("Failed to create request", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create request"})
	}

	return c.JSON(http.StatusCreated, request)
}

// ClearRequest marks a song request processed
func ClearRequest(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSyncRequest("clear")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	var request model.Request
	if err := database.GetDB().Where("id = ? AND user_id = ?", id, userID).First(&request).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&request).Update("processed", true).Error; err != nil {
			return err
		}
		return model.IncrementSerial(tx, userID)
	})
	if err != nil {
		log.Error("Failed to clear request", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to clear request"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "request cleared"})
}

// SyncSetAccepting toggles the accepting venue from the desktop client
func SyncSetAccepting(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSyncRequest("accepting")

	var req struct {
		VenueID   uint `json:"venue_id"`
		Accepting bool `json:"accepting"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var venue model.Venue
	if err := database.GetDB().
		Where("id = ? AND user_id = ?", req.VenueID, userID).
		First(&venue).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
	}

	if err := setAccepting(userID, &venue, req.Accepting); err != nil {
		log.Error("Failed to update accepting state", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update accepting state"})
	}

	return c.JSON(http.StatusOK, echo.Map{"venue_id": venue.ID, "accepting": req.Accepting})
}
