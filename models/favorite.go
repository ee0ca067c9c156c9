package models

import "time"

// Favorite links a user to a restaurant they bookmarked.
type Favorite struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       uint        `gorm:"not null;uniqueIndex:idx_favorite_user_restaurant" json:"user_id"`
	User         *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	RestaurantID uint        `gorm:"not null;uniqueIndex:idx_favorite_user_restaurant" json:"restaurant_id"`
	Restaurant   *Restaurant `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"restaurant,omitempty"`
	CreatedAt    time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}
