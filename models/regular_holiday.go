package models

import "time"

// RegularHoliday is a weekly closing day. Rows are seeded, not edited over HTTP.
type RegularHoliday struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"day"`
	DayIndex  *int      `json:"day_index"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
