package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/openkj/songbook-api/internal/middleware"
	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/internal/storage"
	"github.com/openkj/songbook-api/pkg/database"
	"github.com/openkj/songbook-api/pkg/logger"
	"github.com/openkj/songbook-api/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateTicket opens a support ticket with its first message
func CreateTicket(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSupportOperation("create")

	var req struct {
		Subject  string `json:"subject"`
		Body     string `json:"body"`
		Priority string `json:"priority"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Subject == "" || req.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subject and body are required"})
	}
	if req.Priority == "" {
		req.Priority = model.TicketPriorityNormal
	}
	if !model.ValidTicketPriority(req.Priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid priority"})
	}

	ticket := model.SupportTicket{
		UserID:   userID,
		Subject:  req.Subject,
		Status:   model.TicketStatusOpen,
		Priority: req.Priority,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		message := model.SupportTicketMessage{
			TicketID: ticket.ID,
			AuthorID: userID,
			Body:     req.Body,
		}
		return tx.Create(&message).Error
	})
	if err != nil {
		log.Error("Failed to create ticket", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create ticket"})
	}

	prometheus.OpenTicketsGauge.Inc()
	log.Info("Support ticket created", zap.Uint("user_id", userID), zap.Uint("ticket_id", ticket.ID))
	return c.JSON(http.StatusCreated, ticket)
}

// ListTickets lists the caller's tickets. Staff may pass ?all=true to
// see every ticket.
func ListTickets(c echo.Context) error {
	userID := middleware.UserID(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := database.GetDB().Order("updated_at DESC")
	if !(middleware.IsAdmin(c) && c.QueryParam("all") == "true") {
		query = query.Where("user_id = ?", userID)
	}
	if status := c.QueryParam("status"); status != "" {
		if !model.ValidTicketStatus(status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		query = query.Where("status = ?", status)
	}

	var tickets []model.SupportTicket
	if err := query.Find(&tickets).Error; err != nil {
		logger.FromContext(c).Error("Failed to list tickets", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tickets"})
	}

	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// GetTicket returns a ticket thread with its messages, attachments, and
// audit trail. Internal messages are stripped for non-staff callers.
func GetTicket(c echo.Context) error {
	ticket, ok := findVisibleTicket(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	messages := database.GetDB().Preload("Attachments").Order("created_at")
	if !middleware.IsAdmin(c) {
		messages = messages.Where("internal = ?", false)
	}
	if err := messages.Where("ticket_id = ?", ticket.ID).Find(&ticket.Messages).Error; err != nil {
		logger.FromContext(c).Error("Failed to load ticket messages", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load ticket"})
	}
	if err := database.GetDB().
		Where("ticket_id = ?", ticket.ID).
		Order("created_at").
		Find(&ticket.Audits).Error; err != nil {
		logger.FromContext(c).Error("Failed to load ticket audit trail", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load ticket"})
	}

	return c.JSON(http.StatusOK, ticket)
}

// AddTicketMessage appends a message to a ticket thread, with optional
// multipart file attachments. Only staff may post internal messages.
func AddTicketMessage(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSupportOperation("message")

	ticket, ok := findVisibleTicket(c)
	if !ok {
		return nil
	}

	body := c.FormValue("body")
	if body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message body is required"})
	}
	internal := c.FormValue("internal") == "true"
	if internal && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only staff may post internal messages"})
	}

	// Persist attachment files before the transaction; clean them up if
	// the database writes fail
	var saved []*storage.SavedFile
	var fileNames []string
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["attachments"] {
			f, err := fh.Open()
			if err != nil {
				removeSaved(saved)
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable attachment"})
			}
			sf, err := attachmentStore.Save(ticket.ID, fh.Filename, f)
			f.Close()
			if err != nil {
				removeSaved(saved)
				switch {
				case errors.Is(err, storage.ErrUnsupportedType):
					return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("unsupported attachment type: %s", fh.Filename)})
				case errors.Is(err, storage.ErrTooLarge):
					return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("attachment too large: %s", fh.Filename)})
				default:
					log.Error("Failed to store attachment", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store attachment"})
				}
			}
			prometheus.RecordSupportOperation("attachment")
			saved = append(saved, sf)
			fileNames = append(fileNames, fh.Filename)
		}
	}

	message := model.SupportTicketMessage{
		TicketID: ticket.ID,
		AuthorID: userID,
		Body:     body,
		Internal: internal,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		for i, sf := range saved {
			attachment := model.SupportMessageAttachment{
				MessageID: message.ID,
				FileName:  fileNames[i],
				Path:      sf.Path,
				MimeType:  sf.MimeType,
				Size:      sf.Size,
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return err
			}
		}
		// Touch the ticket so list ordering reflects activity
		return tx.Model(ticket).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		removeSaved(saved)
		log.Error("Failed to add ticket message", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add message"})
	}

	log.Info("Ticket message added",
		zap.Uint("ticket_id", ticket.ID),
		zap.Uint("author_id", userID),
		zap.Int("attachments", len(saved)))
	return c.JSON(http.StatusCreated, message)
}

// UpdateTicket patches status, priority, and assignee. Assignee changes
// are staff-only, and every change appends an audit row in the same
// transaction.
func UpdateTicket(c echo.Context) error {
	log := logger.FromContext(c)
	userID := middleware.UserID(c)
	prometheus.RecordSupportOperation("update")

	ticket, ok := findVisibleTicket(c)
	if !ok {
		return nil
	}

	var req struct {
		Status     *string `json:"status"`
		Priority   *string `json:"priority"`
		AssigneeID *uint   `json:"assignee_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Status != nil && !model.ValidTicketStatus(*req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if req.Priority != nil && !model.ValidTicketPriority(*req.Priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid priority"})
	}
	if req.AssigneeID != nil && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only staff may assign tickets"})
	}

	if req.AssigneeID != nil && *req.AssigneeID != 0 {
		var assignee model.User
		if err := database.GetDB().Where("id = ? AND admin = ?", *req.AssigneeID, true).First(&assignee).Error; err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "assignee must be a staff user"})
		}
	}

	wasOpen := ticket.Status == model.TicketStatusOpen || ticket.Status == model.TicketStatusPending

	defer prometheus.TrackDBOperation("update")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		audit := func(field, oldVal, newVal string) error {
			if oldVal == newVal {
				return nil
			}
			return tx.Create(&model.SupportTicketAudit{
				TicketID: ticket.ID,
				ActorID:  userID,
				Field:    field,
				OldValue: oldVal,
				NewValue: newVal,
			}).Error
		}

		if req.Status != nil {
			if err := audit("status", ticket.Status, *req.Status); err != nil {
				return err
			}
			ticket.Status = *req.Status
		}
		if req.Priority != nil {
			if err := audit("priority", ticket.Priority, *req.Priority); err != nil {
				return err
			}
			ticket.Priority = *req.Priority
		}
		if req.AssigneeID != nil {
			if err := audit("assignee", formatAssignee(ticket.AssigneeID), formatAssignee(req.AssigneeID)); err != nil {
				return err
			}
			if *req.AssigneeID == 0 {
				ticket.AssigneeID = nil
			} else {
				ticket.AssigneeID = req.AssigneeID
			}
		}

		return tx.Save(ticket).Error
	})
	if err != nil {
		log.Error("Failed to update ticket", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update ticket"})
	}

	isOpen := ticket.Status == model.TicketStatusOpen || ticket.Status == model.TicketStatusPending
	if wasOpen && !isOpen {
		prometheus.OpenTicketsGauge.Dec()
	} else if !wasOpen && isOpen {
		prometheus.OpenTicketsGauge.Inc()
	}

	log.Info("Ticket updated", zap.Uint("ticket_id", ticket.ID), zap.Uint("actor_id", userID))
	return c.JSON(http.StatusOK, ticket)
}

// DownloadAttachment streams a stored attachment, ownership-checked
// through its message's ticket
func DownloadAttachment(c echo.Context) error {
	userID := middleware.UserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attachment id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var attachment model.SupportMessageAttachment
	if err := database.GetDB().First(&attachment, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "attachment not found"})
	}

	var message model.SupportTicketMessage
	if err := database.GetDB().First(&message, attachment.MessageID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "attachment not found"})
	}
	var ticket model.SupportTicket
	if err := database.GetDB().First(&ticket, message.TicketID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "attachment not found"})
	}

	if ticket.UserID != userID && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	if message.Internal && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	return c.Attachment(attachmentStore.AbsPath(attachment.Path), attachment.FileName)
}

// findVisibleTicket loads the ticket in the :id path param; customers
// see their own tickets, staff see all. On failure the error response
// has already been written and ok is false.
func findVisibleTicket(c echo.Context) (*model.SupportTicket, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
		return nil, false
	}

	var ticket model.SupportTicket
	query := database.GetDB()
	if !middleware.IsAdmin(c) {
		query = query.Where("user_id = ?", middleware.UserID(c))
	}
	if err := query.First(&ticket, id).Error; err != nil {
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		return nil, false
	}
	return &ticket, true
}

func removeSaved(saved []*storage.SavedFile) {
	for _, sf := range saved {
		_ = attachmentStore.Remove(sf.Path)
	}
}

func formatAssignee(id *uint) string {
	if id == nil || *id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}
