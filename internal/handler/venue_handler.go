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

type venueRequest struct {
	Name     string  `json:"name"`
	URLName  string  `json:"url_name"`
	Address1 string  `json:"address1"`
	Address2 string  `json:"address2"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	Zip      string  `json:"zip"`
	Country  string  `json:"country"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// CreateVenue creates a venue for the authenticated customer
func CreateVenue(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordVenueOperation("create")

	var req venueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue name is required"})
	}
	if req.URLName == "" {
		req.URLName = slugify(req.Name)
	}

	venue := model.Venue{
		UserID:   userID,
		Name:     req.Name,
		URLName:  req.URLName,
		Address1: req.Address1,
		Address2: req.Address2,
		City:     req.City,
		State:    req.State,
		Zip:      req.Zip,
		Country:  req.Country,
		Lat:      req.Lat,
		Lng:      req.Lng,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&venue).Error; err != nil {
			return err
		}
		return model.IncrementSerial(tx, userID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "venue url name already in use"})
		}
		log.Error("Failed to create venue", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create venue"})
	}

	log.Info("Venue created", zap.Uint("user_id", userID), zap.Uint("venue_id", venue.ID))
	return c.JSON(http.StatusCreated, venue)
}

// ListVenues lists the authenticated customer's venues
func ListVenues(c echo.Context) error {
	userID := middleware.UserID(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var venues []model.Venue
	if err := database.GetDB().Where("user_id = ?", userID).Order("name").Find(&venues).Error; err != nil {
		logger.FromContext(c).Error("Failed to list venues", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list venues"})
	}

	return c.JSON(http.StatusOK, echo.Map{"venues": venues})
}

// GetVenue returns one venue, ownership-checked
func GetVenue(c echo.Context) error {
	userID := middleware.UserID(c)

	venue, ok := findOwnedVenue(c, userID)
	if !ok {
		return nil
	}
	return c.JSON(http.StatusOK, venue)
}

// UpdateVenue updates venue fields, ownership-checked
func UpdateVenue(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordVenueOperation("update")

	venue, ok := findOwnedVenue(c, userID)
	if !ok {
		return nil
	}

	// Pointer fields so omitted keys leave the stored values alone
	var req struct {
		Name     *string  `json:"name"`
		URLName  *string  `json:"url_name"`
		Address1 *string  `json:"address1"`
		Address2 *string  `json:"address2"`
		City     *string  `json:"city"`
		State    *string  `json:"state"`
		Zip      *string  `json:"zip"`
		Country  *string  `json:"country"`
		Lat      *float64 `json:"lat"`
		Lng      *float64 `json:"lng"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name != nil && *req.Name != "" {
		venue.Name = *req.Name
	}
	if req.URLName != nil && *req.URLName != "" {
		venue.URLName = *req.URLName
	}
	if req.Address1 != nil {
		venue.Address1 = *req.Address1
	}
	if req.Address2 != nil {
		venue.Address2 = *req.Address2
	}
	if req.City != nil {
		venue.City = *req.City
	}
	if req.State != nil {
		venue.State = *req.State
	}
	if req.Zip != nil {
		venue.Zip = *req.Zip
	}
	if req.Country != nil {
		venue.Country = *req.Country
	}
	if req.Lat != nil {
		venue.Lat = *req.Lat
	}
	if req.Lng != nil {
		venue.Lng = *req.Lng
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(venue).Error; err != nil {
			return err
		}
		return model.IncrementSerial(tx, userID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "venue url name already in use"})
		}
		log.Error("Failed to update venue", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update venue"})
	}

	return c.JSON(http.StatusOK, venue)
}

// DeleteVenue deletes a venue, ownership-checked. Its pending requests
// are retired and, if it was the venue currently accepting requests,
// the sync state is cleared too.
func DeleteVenue(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordVenueOperation("delete")

	venue, ok := findOwnedVenue(c, userID)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(venue).Error; err != nil {
			return err
		}
		// Pending requests for the venue would otherwise dangle in the
		// sync feed
		if err := tx.Model(&model.Request{}).
			Where("user_id = ? AND venue_id = ? AND processed = ?", userID, venue.ID, false).
			Update("processed", true).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.State{}).
			Where("user_id = ? AND venue_id = ?", userID, venue.ID).
			Updates(map[string]interface{}{"venue_id": nil, "accepting": false}).Error; err != nil {
			return err
		}
		return model.IncrementSerial(tx, userID)
	})
	if err != nil {
		log.Error("Failed to delete venue", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete venue"})
	}

	log.Info("Venue deleted", zap.Uint("user_id", userID), zap.Uint("venue_id", venue.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "venue deleted"})
}

// SetVenueAccepting flips whether a venue is accepting requests. At most
// one venue accepts at a time; the sync state tracks which.
func SetVenueAccepting(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordVenueOperation("accepting")

	venue, ok := findOwnedVenue(c, userID)
	if !ok {
		return nil
	}

	var req struct {
		Accepting bool `json:"accepting"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := setAccepting(userID, venue, req.Accepting); err != nil {
		log.Error("Failed to update accepting state", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update accepting state"})
	}

	log.Info("Venue accepting state changed",
		zap.Uint("venue_id", venue.ID),
		zap.Bool("accepting", req.Accepting))
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venue.ID, "accepting": req.Accepting})
}

// SearchVenuePlaces proxies a free-text venue search to the places provider
func SearchVenuePlaces(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVenueOperation("search")

	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query parameter q is required"})
	}
	if placesClient == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "place search is not configured"})
	}

	results, err := placesClient.Search(c.Request().Context(), query)
	if err != nil {
		log.Error("Place search failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "place search failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"results": results})
}

// setAccepting updates the venue row and the sync state in one transaction
func setAccepting(userID uint, venue *model.Venue, accepting bool) error {
	return database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(venue).Update("accepting", accepting).Error; err != nil {
			return err
		}
		// Only one venue accepts at a time
		if accepting {
			if err := tx.Model(&model.Venue{}).
				Where("user_id = ? AND id <> ?", userID, venue.ID).
				Update("accepting", false).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{"accepting": accepting}
		if accepting {
			updates["venue_id"] = venue.ID
		} else {
			updates["venue_id"] = nil
		}
		if err := tx.Model(&model.State{}).
			Where("user_id = ?", userID).
			Updates(updates).Error; err != nil {
			return err
		}
		return model.IncrementSerial(tx, userID)
	})
}

// findOwnedVenue loads the venue in the :id path param and verifies the
// caller owns it. On failure the error response has already been written
// and ok is false.
func findOwnedVenue(c echo.Context, userID uint) (venue *model.Venue, ok bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
		return nil, false
	}

	var v model.Venue
	result := database.GetDB().Where("id = ? AND user_id = ?", id, userID).First(&v)
	if result.Error != nil {
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		return nil, false
	}
	return &v, true
}

// slugify derives a url_name from a venue name
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
