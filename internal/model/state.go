package model

import (
	"time"

	"gorm.io/gorm"
)

// State tracks the per-customer sync state polled by desktop clients.
// Serial increments on every write the clients need to observe, so a
// client compares its cached serial against this row to decide whether
// to re-sync.
type State struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	Accepting bool      `json:"accepting" gorm:"default:false"`
	VenueID   *uint     `json:"venue_id,omitempty"` // Venue currently accepting requests
	Serial    int64     `json:"serial" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IncrementSerial bumps the user's sync serial. Must run inside the same
// transaction as the state-changing write it accompanies.
func IncrementSerial(tx *gorm.DB, userID uint) error {
	result := tx.Model(&State{}).
		Where("user_id = ?", userID).
		UpdateColumn("serial", gorm.Expr("serial + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
