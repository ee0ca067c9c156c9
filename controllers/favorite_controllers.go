package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const favoritesPerPage = 15

type FavoriteController struct {
	DB *gorm.DB
}

func NewFavoriteController(db *gorm.DB) *FavoriteController {
	return &FavoriteController{DB: db}
}

// Index lists the member's favorite restaurants, most recently added first.
func (fc *FavoriteController) Index(c *gin.Context) {
	query := fc.DB.Model(&models.Restaurant{}).
		Joins("JOIN favorites ON favorites.restaurant_id = restaurants.id").
		Where("favorites.user_id = ?", auth.FromContext(c).UserID())

	page, err := utils.Paginate[models.Restaurant](query, utils.PageFromQuery(c.Query("page")), favoritesPerPage,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Select("restaurants.*").
				Order("favorites.created_at desc").
				Order("favorites.id desc")
		})
	if err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "お気に入り一覧", gin.H{"favorite_restaurants": page})
}

func (fc *FavoriteController) restaurant(c *gin.Context) (*models.Restaurant, bool) {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return nil, false
	}
	var restaurant models.Restaurant
	if err := fc.DB.First(&restaurant, id).Error; err != nil {
		respondDBError(c, err)
		return nil, false
	}
	return &restaurant, true
}

// Store adds the restaurant to the member's favorites. Adding twice is a no-op.
func (fc *FavoriteController) Store(c *gin.Context) {
	restaurant, ok := fc.restaurant(c)
	if !ok {
		return
	}

	favorite := models.Favorite{UserID: auth.FromContext(c).UserID(), RestaurantID: restaurant.ID}
	if err := fc.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&favorite).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectBack(c, fmt.Sprintf("/restaurants/%d", restaurant.ID), utils.FlashMessage, "お気に入りに追加しました。")
}

func (fc *FavoriteController) Destroy(c *gin.Context) {
	restaurant, ok := fc.restaurant(c)
	if !ok {
		return
	}

	err := fc.DB.Where("user_id = ? AND restaurant_id = ?", auth.FromContext(c).UserID(), restaurant.ID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectBack(c, fmt.Sprintf("/restaurants/%d", restaurant.ID), utils.FlashMessage, "お気に入りを解除しました。")
}
