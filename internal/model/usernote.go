package model

import (
	"time"

	"gorm.io/gorm"
)

// UserNote is a staff-written note about a customer account
type UserNote struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null;index"` // Subject account
	AuthorID  uint           `json:"author_id" gorm:"not null"`     // Staff member who wrote it
	Body      string         `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
