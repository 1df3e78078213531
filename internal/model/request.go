package model

import "time"

// Request is a song request submitted by a singer at a venue, queued for
// the desktop software to pull and mark processed.
type Request struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;index"`
	VenueID     uint      `json:"venue_id" gorm:"not null;index"`
	Singer      string    `json:"singer" gorm:"type:varchar(100)"`
	Artist      string    `json:"artist" gorm:"type:varchar(200)"`
	Title       string    `json:"title" gorm:"type:varchar(200)"`
	KeyChange   int       `json:"key_change" gorm:"default:0"`
	WaitTime    int       `json:"wait_time" gorm:"default:0"` // Estimated minutes until the singer is up
	Processed   bool      `json:"processed" gorm:"default:false;index"`
	RequestTime time.Time `json:"request_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
