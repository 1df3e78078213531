package model

import "time"

// Song is a single songbook entry uploaded by the customer's desktop
// software. Uploads replace the whole book, so there is no soft delete.
type Song struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Artist    string    `json:"artist" gorm:"type:varchar(200)"`
	Title     string    `json:"title" gorm:"type:varchar(200)"`
	Combined  string    `json:"combined" gorm:"type:varchar(401);index"`
	CreatedAt time.Time `json:"created_at"`
}
