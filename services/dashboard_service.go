package services

import (
	"context"

	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers        int64  `json:"total_users"`
	PremiumUsers      int64  `json:"total_premium_users"`
	FreeUsers         int64  `json:"total_free_users"`
	TotalRestaurants  int64  `json:"total_restaurants"`
	TotalReservations int64  `json:"total_reservations"`
	MonthlySales      int64  `json:"sales_for_this_month"`
	MonthlySalesLabel string `json:"sales_for_this_month_label"`
}

type DashboardService struct {
	db            *gorm.DB
	subscriptions *SubscriptionService
	monthlyFee    int
}

func NewDashboardService(db *gorm.DB, subscriptions *SubscriptionService, monthlyFee int) *DashboardService {
	return &DashboardService{db: db, subscriptions: subscriptions, monthlyFee: monthlyFee}
}

// Stats computes the admin home figures. Sales are the monthly fee times the
// number of premium users.
func (s *DashboardService) Stats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return stats, err
	}
	premium, err := s.subscriptions.PremiumUserCount(ctx)
	if err != nil {
		return stats, err
	}
	stats.PremiumUsers = premium
	stats.FreeUsers = stats.TotalUsers - premium
	if stats.FreeUsers < 0 {
		stats.FreeUsers = 0
	}

	if err := db.Model(&models.Restaurant{}).Count(&stats.TotalRestaurants).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Reservation{}).Count(&stats.TotalReservations).Error; err != nil {
		return stats, err
	}

	stats.MonthlySales = int64(s.monthlyFee) * premium
	stats.MonthlySalesLabel = utils.FormatYen(int(stats.MonthlySales))
	return stats, nil
}
