package model

import (
	"time"

	"gorm.io/gorm"
)

// Support ticket statuses
const (
	TicketStatusOpen     = "open"
	TicketStatusPending  = "pending"
	TicketStatusResolved = "resolved"
	TicketStatusClosed   = "closed"
)

// Support ticket priorities
const (
	TicketPriorityLow    = "low"
	TicketPriorityNormal = "normal"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

// ValidTicketStatus reports whether s is a known ticket status
func ValidTicketStatus(s string) bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidTicketPriority reports whether p is a known ticket priority
func ValidTicketPriority(p string) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// SupportTicket is a customer-support conversation thread
type SupportTicket struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"not null;index"`
	Subject    string         `json:"subject" gorm:"type:varchar(200);not null"`
	Status     string         `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	Priority   string         `json:"priority" gorm:"type:varchar(20);not null;default:'normal';index"`
	AssigneeID *uint          `json:"assignee_id,omitempty" gorm:"index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Messages []SupportTicketMessage `json:"messages,omitempty" gorm:"foreignKey:TicketID"`
	Audits   []SupportTicketAudit   `json:"audits,omitempty" gorm:"foreignKey:TicketID"`
}

// SupportTicketMessage is a single message within a ticket thread.
// Internal messages are visible to staff only.
type SupportTicketMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TicketID  uint      `json:"ticket_id" gorm:"not null;index"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	Internal  bool      `json:"internal" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Attachments []SupportMessageAttachment `json:"attachments,omitempty" gorm:"foreignKey:MessageID"`
}

// SupportMessageAttachment records a file stored alongside a message
type SupportMessageAttachment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"message_id" gorm:"not null;index"`
	FileName  string    `json:"file_name" gorm:"type:varchar(255);not null"`
	Path      string    `json:"-" gorm:"type:varchar(500);not null"`
	MimeType  string    `json:"mime_type" gorm:"type:varchar(100)"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportTicketAudit records one field change on a ticket. A row is
// appended in the same transaction as every status/priority/assignee
// change.
type SupportTicketAudit struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TicketID  uint      `json:"ticket_id" gorm:"not null;index"`
	ActorID   uint      `json:"actor_id" gorm:"not null"`
	Field     string    `json:"field" gorm:"type:varchar(50);not null"`
	OldValue  string    `json:"old_value" gorm:"type:varchar(100)"`
	NewValue  string    `json:"new_value" gorm:"type:varchar(100)"`
	CreatedAt time.Time `json:"created_at"`
}
