package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

type HomeController struct {
	DB     *gorm.DB
	Search *services.RestaurantSearchService
}

func NewHomeController(db *gorm.DB, search *services.RestaurantSearchService) *HomeController {
	return &HomeController{DB: db, Search: search}
}

// Index shows the six best-rated restaurants, every category and the six
// newest restaurants.
func (hc *HomeController) Index(c *gin.Context) {
	highlyRated, err := hc.Search.TopRated(6)
	if err != nil {
		respondDBError(c, err)
		return
	}

	var categories []models.Category
	if err := hc.DB.Order("id").Find(&categories).Error; err != nil {
		respondDBError(c, err)
		return
	}

	newest, err := hc.Search.Newest(6)
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "ホーム", gin.H{
		"highly_rated_restaurants": highlyRated,
		"categories":               categories,
		"new_restaurants":          newest,
	})
}
