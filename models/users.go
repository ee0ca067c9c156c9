package models

import "time"

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Kana        string    `gorm:"type:varchar(255);not null" json:"kana"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	PostalCode  string    `gorm:"type:varchar(7);not null" json:"postal_code"`
	Address     string    `gorm:"type:varchar(255);not null" json:"address"`
	PhoneNumber string    `gorm:"type:varchar(11);not null" json:"phone_number"`
	Birthday    *string   `gorm:"type:varchar(8)" json:"birthday"`
	Occupation  *string   `gorm:"type:varchar(255)" json:"occupation"`
	StripeID    *string   `gorm:"type:varchar(255);index" json:"-"`
	PmType      *string   `gorm:"type:varchar(255)" json:"pm_type,omitempty"`
	PmLastFour  *string   `gorm:"type:varchar(4)" json:"pm_last_four,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// HasStripeID reports whether a billing customer was already created.
func (u *User) HasStripeID() bool {
	return u.StripeID != nil && *u.StripeID != ""
}
