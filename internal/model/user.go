package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a customer account stored in the database
type User struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Email            string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password         string         `json:"-" gorm:"type:varchar(255)"`
	Name             string         `json:"name" gorm:"type:varchar(100)"`
	StripeCustomerID string         `json:"-" gorm:"type:varchar(64);index"`
	Admin            bool           `json:"admin" gorm:"default:false"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}
