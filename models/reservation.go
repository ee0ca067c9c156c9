package models

import "time"

type Reservation struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	ReservedDatetime time.Time   `gorm:"not null" json:"reserved_datetime"`
	NumberOfPeople   int         `gorm:"not null" json:"number_of_people"`
	RestaurantID     uint        `gorm:"not null;index" json:"restaurant_id"`
	Restaurant       *Restaurant `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"restaurant,omitempty"`
	UserID           uint        `gorm:"not null;index" json:"user_id"`
	User             *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt        time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"not null" json:"updated_at"`
}

func (r *Reservation) OwnedBy(userID uint) bool {
	return r.UserID == userID
}
