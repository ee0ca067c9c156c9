package models

import "time"

type Company struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	PostalCode        string    `gorm:"type:varchar(7);not null" json:"postal_code"`
	Address           string    `gorm:"type:varchar(255);not null" json:"address"`
	Representative    string    `gorm:"type:varchar(255);not null" json:"representative"`
	EstablishmentDate string    `gorm:"type:varchar(255);not null" json:"establishment_date"`
	Capital           string    `gorm:"type:varchar(255);not null" json:"capital"`
	Business          string    `gorm:"type:varchar(255);not null" json:"business"`
	NumberOfEmployees string    `gorm:"type:varchar(255);not null" json:"number_of_employees"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}
