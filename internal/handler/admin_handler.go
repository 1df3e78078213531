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
)

// ListUsers lists customer accounts for staff
func ListUsers(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := database.GetDB().Order("created_at DESC")
	if email := c.QueryParam("email"); email != "" {
		query = query.Where("email LIKE ?", "%"+email+"%")
	}

	var users []model.User
	if err := query.Find(&users).Error; err != nil {
		logger.FromContext(c).Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
	}

	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// ListUserNotes lists staff notes about one customer account
func ListUserNotes(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var notes []model.UserNote
	if err := database.GetDB().
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notes).Error; err != nil {
		logger.FromContext(c).Error("Failed to list user notes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list notes"})
	}

	return c.JSON(http.StatusOK, echo.Map{"notes": notes})
}

// CreateUserNote records a staff note about a customer account
func CreateUserNote(c echo.Context) error {
	log := logger.FromContext(c)
	authorID := middleware.UserID(c)

	subjectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil || req.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "note body is required"})
	}

	var subject model.User
	if err := database.GetDB().First(&subject, subjectID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	note := model.UserNote{
		UserID:   uint(subjectID),
		AuthorID: authorID,
		Body:     req.Body,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(&note).Error; err != nil {
		log.Error("Failed to create user note", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create note"})
	}

	log.Info("User note created",
		zap.Uint("subject_id", uint(subjectID)),
		zap.Uint("author_id", authorID))
	return c.JSON(http.StatusCreated, note)
}

// DeleteUserNote removes a staff note
func DeleteUserNote(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid note id"})
	}

	var note model.UserNote
	if err := database.GetDB().First(&note, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "note not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&note).Error; err != nil {
		log.Error("Failed to delete user note", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete note"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "note deleted"})
}
