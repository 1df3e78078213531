package model

import (
	"time"

	"gorm.io/gorm"
)

// Venue represents a physical karaoke location owned by a customer
type Venue struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null;index:ux_venues_user_url,unique,priority:1"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	URLName   string         `json:"url_name" gorm:"type:varchar(100);not null;index:ux_venues_user_url,unique,priority:2"`
	Address1  string         `json:"address1" gorm:"type:varchar(200)"`
	Address2  string         `json:"address2" gorm:"type:varchar(200)"`
	City      string         `json:"city" gorm:"type:varchar(100)"`
	State     string         `json:"state" gorm:"type:varchar(100)"`
	Zip       string         `json:"zip" gorm:"type:varchar(20)"`
	Country   string         `json:"country" gorm:"type:varchar(100)"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Accepting bool           `json:"accepting" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
