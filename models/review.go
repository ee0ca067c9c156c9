package models

import "time"

type Review struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Score        int         `gorm:"not null" json:"score"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	RestaurantID uint        `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   *Restaurant `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"restaurant,omitempty"`
	UserID       uint        `gorm:"not null;index" json:"user_id"`
	User         *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}

// OwnedBy reports whether userID wrote the review.
func (r *Review) OwnedBy(userID uint) bool {
	return r.UserID == userID
}
