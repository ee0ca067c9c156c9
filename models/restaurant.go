package models

import "time"

type Restaurant struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"type:varchar(255);not null" json:"name"`
	Image           string           `gorm:"type:varchar(255);not null;default:''" json:"image"`
	Description     string           `gorm:"type:text;not null" json:"description"`
	LowestPrice     int              `gorm:"not null" json:"lowest_price"`
	HighestPrice    int              `gorm:"not null" json:"highest_price"`
	PostalCode      string           `gorm:"type:varchar(7);not null" json:"postal_code"`
	Address         string           `gorm:"type:varchar(255);not null" json:"address"`
	OpeningTime     string           `gorm:"type:varchar(5);not null" json:"opening_time"`
	ClosingTime     string           `gorm:"type:varchar(5);not null" json:"closing_time"`
	SeatingCapacity int              `gorm:"not null" json:"seating_capacity"`
	Categories      []Category       `gorm:"many2many:category_restaurant;" json:"categories,omitempty"`
	RegularHolidays []RegularHoliday `gorm:"many2many:regular_holiday_restaurant;" json:"regular_holidays,omitempty"`
	Reviews         []Review         `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"-"`
	Reservations    []Reservation    `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time        `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null" json:"updated_at"`

	// Filled only by queries that select the aggregates.
	ReservationsCount int64   `gorm:"->;-:migration" json:"reservations_count"`
	ReviewsAvgScore   float64 `gorm:"->;-:migration" json:"reviews_avg_score"`
}

// CategoryIDs lists the ids of the preloaded categories.
func (r *Restaurant) CategoryIDs() []uint {
	ids := make([]uint, 0, len(r.Categories))
	for _, c := range r.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}
