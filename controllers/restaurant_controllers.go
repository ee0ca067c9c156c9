package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

type RestaurantController struct {
	DB     *gorm.DB
	Search *services.RestaurantSearchService
}

func NewRestaurantController(db *gorm.DB, search *services.RestaurantSearchService) *RestaurantController {
	return &RestaurantController{DB: db, Search: search}
}

// Index lists restaurants matching keyword, category_id and price, ordered by
// select_sort.
func (rc *RestaurantController) Index(c *gin.Context) {
	q := services.ParseRestaurantQuery(
		c.Query("keyword"),
		c.Query("category_id"),
		c.Query("price"),
		c.Query("select_sort"),
		c.Query("page"),
	)

	page, err := rc.Search.Search(q)
	if err != nil {
		respondDBError(c, err)
		return
	}

	var categories []models.Category
	if err := rc.DB.Order("id").Find(&categories).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "店舗一覧", gin.H{
		"restaurants": page,
		"total":       page.Total,
		"keyword":     q.Keyword,
		"category_id": q.CategoryID,
		"price":       q.Price,
		"sorted":      q.Sort.Value,
		"sorts":       services.SortOptions,
		"categories":  categories,
	})
}

// Show returns one restaurant with its review summary. Members also learn
// whether it is in their favorites.
func (rc *RestaurantController) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var restaurant models.Restaurant
	err := rc.DB.Model(&models.Restaurant{}).
		Scopes(services.WithAggregates).
		Preload("Categories").
		Preload("RegularHolidays", func(tx *gorm.DB) *gorm.DB { return tx.Order("day_index") }).
		First(&restaurant, "restaurants.id = ?", id).Error
	if err != nil {
		respondDBError(c, err)
		return
	}

	var reviewCount int64
	if err := rc.DB.Model(&models.Review{}).Where("restaurant_id = ?", id).Count(&reviewCount).Error; err != nil {
		respondDBError(c, err)
		return
	}

	favorited := false
	if p := auth.FromContext(c); p.IsMember() {
		var n int64
		if err := rc.DB.Model(&models.Favorite{}).
			Where("user_id = ? AND restaurant_id = ?", p.UserID(), id).
			Count(&n).Error; err != nil {
			respondDBError(c, err)
			return
		}
		favorited = n > 0
	}

	utils.RespondJSON(c, http.StatusOK, restaurant.Name, gin.H{
		"restaurant":        restaurant,
		"price_range":       utils.PriceRange(restaurant.LowestPrice, restaurant.HighestPrice),
		"reviews_avg_score": restaurant.ReviewsAvgScore,
		"reviews_count":     reviewCount,
		"is_favorite":       favorited,
	})
}
