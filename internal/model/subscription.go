package model

import "time"

// Subscription mirrors the customer's Stripe subscription. The Stripe
// webhook handler is the only writer of Status; everything else reads.
type Subscription struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	UserID               uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	StripeSubscriptionID string    `json:"stripe_subscription_id" gorm:"type:varchar(64);uniqueIndex"`
	StripePriceID        string    `json:"stripe_price_id" gorm:"type:varchar(64)"`
	Status               string    `json:"status" gorm:"type:varchar(32);index"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool      `json:"cancel_at_period_end" gorm:"default:false"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
