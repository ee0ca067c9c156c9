package database

import (
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Admin{},
		&models.User{},
		&models.Category{},
		&models.RegularHoliday{},
		&models.Restaurant{},
		&models.Review{},
		&models.Reservation{},
		&models.Favorite{},
		&models.Subscription{},
		&models.Company{},
		&models.Term{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
