package database

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var regularHolidays = []string{"月", "火", "水", "木", "金", "土", "日", "不定休"}

// SeedOptions carries the optional bootstrap administrator.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seed inserts reference rows that the app expects to exist. It is safe to
// run on every start.
func Seed(db *gorm.DB, opts SeedOptions) error {
	for i, day := range regularHolidays {
		idx := i + 1
		if i == len(regularHolidays)-1 {
			idx = 0
		}
		holiday := models.RegularHoliday{Day: day, DayIndex: &idx}
		if err := db.Where(models.RegularHoliday{Day: day}).FirstOrCreate(&holiday).Error; err != nil {
			return fmt.Errorf("seed regular holiday %s: %w", day, err)
		}
	}

	if err := seedFirst(db, &models.Company{
		Name:              "NAGOYAMESHI株式会社",
		PostalCode:        "4600001",
		Address:           "愛知県名古屋市中区",
		Representative:    "代表 太郎",
		EstablishmentDate: "2024年1月1日",
		Capital:           "1,000万円",
		Business:          "飲食店検索・予約サービスの運営",
		NumberOfEmployees: "10名",
	}); err != nil {
		return err
	}

	if err := seedFirst(db, &models.Term{Content: "本規約はNAGOYAMESHIの利用条件を定めるものです。"}); err != nil {
		return err
	}

	if opts.AdminEmail != "" {
		if err := seedAdmin(db, opts.AdminEmail, opts.AdminPassword); err != nil {
			return err
		}
	}

	utils.InfoLogger.Println("Seeding completed.")
	return nil
}

// seedFirst creates row only when its table is still empty.
func seedFirst(db *gorm.DB, row interface{}) error {
	var count int64
	if err := db.Model(row).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(row).Error
}

func seedAdmin(db *gorm.DB, email, password string) error {
	var admin models.Admin
	err := db.Where("email = ?", email).First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin = models.Admin{Email: email, Password: string(hashed)}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	utils.InfoLogger.Printf("Seeded admin account %s", email)
	return nil
}
