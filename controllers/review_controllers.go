package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const (
	reviewsPerPage     = 5
	freeReviewsPreview = 3
)

type reviewForm struct {
	Score   int    `form:"score" binding:"required,min=1,max=5"`
	Content string `form:"content" binding:"required"`
}

type ReviewController struct {
	DB *gorm.DB
}

func NewReviewController(db *gorm.DB) *ReviewController {
	return &ReviewController{DB: db}
}

func reviewsPath(restaurantID uint) string {
	return fmt.Sprintf("/restaurants/%d/reviews", restaurantID)
}

func (rc *ReviewController) restaurant(c *gin.Context) (*models.Restaurant, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, id).Error; err != nil {
		respondDBError(c, err)
		return nil, false
	}
	return &restaurant, true
}

// ownedReview loads the review under restaurant and checks it belongs to the
// member. A foreign review redirects to the review list with an error flash.
func (rc *ReviewController) ownedReview(c *gin.Context, restaurant *models.Restaurant) (*models.Review, bool) {
	id, ok := paramID(c, "review")
	if !ok {
		return nil, false
	}
	var review models.Review
	if err := rc.DB.Where("restaurant_id = ?", restaurant.ID).First(&review, id).Error; err != nil {
		respondDBError(c, err)
		return nil, false
	}
	if !review.OwnedBy(auth.FromContext(c).UserID()) {
		utils.RedirectWithFlash(c, reviewsPath(restaurant.ID), utils.ErrorMessage, msgInvalidAccess)
		return nil, false
	}
	return &review, true
}

// Index lists a restaurant's reviews, newest first. Premium members page
// through all of them; free members see the latest three.
func (rc *ReviewController) Index(c *gin.Context) {
	restaurant, ok := rc.restaurant(c)
	if !ok {
		return
	}

	p := auth.FromContext(c)
	query := rc.DB.Model(&models.Review{}).Where("restaurant_id = ?", restaurant.ID)
	newestFirst := func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at desc").Order("id desc").Preload("User")
	}

	data := gin.H{"restaurant": restaurant, "is_premium": p.IsPremium()}
	if p.IsPremium() {
		page, err := utils.Paginate[models.Review](query, utils.PageFromQuery(c.Query("page")), reviewsPerPage, newestFirst)
		if err != nil {
			respondDBError(c, err)
			return
		}
		data["reviews"] = page
	} else {
		var reviews []models.Review
		if err := query.Scopes(newestFirst).Limit(freeReviewsPreview).Find(&reviews).Error; err != nil {
			respondDBError(c, err)
			return
		}
		data["reviews"] = reviews
	}

	utils.RespondJSON(c, http.StatusOK, "レビュー一覧", data)
}

func (rc *ReviewController) Create(c *gin.Context) {
	restaurant, ok := rc.restaurant(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "レビュー投稿", gin.H{"restaurant": restaurant})
}

func (rc *ReviewController) Store(c *gin.Context) {
	restaurant, ok := rc.restaurant(c)
	if !ok {
		return
	}

	var form reviewForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	review := models.Review{
		Score:        form.Score,
		Content:      form.Content,
		RestaurantID: restaurant.ID,
		UserID:       auth.FromContext(c).UserID(),
	}
	if err := rc.DB.Create(&review).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, reviewsPath(restaurant.ID), utils.FlashMessage, "レビューを投稿しました。")
}

func (rc *ReviewController) Edit(c *gin.Context) {
	restaurant, ok := rc.restaurant(c)
	if !ok {
		return
	}
	review, ok := rc.ownedReview(c, restaurant)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "レビュー編集", gin.H{"restaurant": restaurant, "review": review})
}

func (rc *ReviewController) Update(c *gin.Context) {
	restaurant, ok := rc.restaurant(c)
	if !ok {
		return
	}
	review, ok := rc.ownedReview(c, restaurant)
	if !ok {
		return
	}

	var form reviewForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	err := rc.DB.Model(review).Updates(map[string]interface{}{
		"score":   form.Score,
		"content": form.Content,
	}).Error
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, reviewsPath(restaurant.ID), utils.FlashMessage, "レビューを編集しました。")
}

func (rc *ReviewController) Destroy(c *gin.Context) {
	restaurant, ok := rc.restaurant(c)
	if !ok {
		return
	}
	review, ok := rc.ownedReview(c, restaurant)
	if !ok {
		return
	}

	if err := rc.DB.Delete(review).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, reviewsPath(restaurant.ID), utils.FlashMessage, "レビューを削除しました。")
}
