package models

import "time"

// Stripe subscription statuses the app branches on.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionCanceled = "canceled"
)

// Subscription mirrors the provider's subscription record for one user and plan.
type Subscription struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Type         string     `gorm:"type:varchar(255);not null" json:"type"`
	StripeID     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripe_id"`
	StripeStatus string     `gorm:"type:varchar(255);not null" json:"stripe_status"`
	StripePrice  string     `gorm:"type:varchar(255)" json:"stripe_price"`
	Quantity     int        `gorm:"not null;default:1" json:"quantity"`
	EndsAt       *time.Time `json:"ends_at"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// Valid is true while the subscription grants access: active or trialing with
// no end date, or still inside a grace period that ends in the future.
func (s *Subscription) Valid(now time.Time) bool {
	if s.EndsAt != nil {
		return s.EndsAt.After(now)
	}
	return s.StripeStatus == SubscriptionActive || s.StripeStatus == SubscriptionTrialing
}
