package model

import "time"

// System is a per-customer sequential integration identifier used by
// desktop karaoke software for songbook sync. Numbering is gapless and
// sequential per user; the composite unique index backstops concurrent
// assignment. Rows are hard-deleted so the sequence can be reused from
// the top.
type System struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         uint      `json:"user_id" gorm:"not null;index:ux_systems_user_number,unique,priority:1"`
	OpenKjSystemID int       `json:"open_kj_system_id" gorm:"column:open_kj_system_id;not null;index:ux_systems_user_number,unique,priority:2"`
	Name           string    `json:"name" gorm:"type:varchar(100)"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
