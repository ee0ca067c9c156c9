package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const (
	adminCategoriesPath = "/admin/categories"
	categoriesPerPage   = 15
)

type categoryForm struct {
	Name string `form:"name" binding:"required,max=255"`
}

type CategoryController struct {
	DB *gorm.DB
}

func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{DB: db}
}

// Index
func (cc *CategoryController) Index(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	query := cc.DB.Model(&models.Category{})
	if keyword != "" {
		query = query.Where("name LIKE ?", keywordLike(keyword))
	}

	page, err := utils.Paginate[models.Category](query, utils.PageFromQuery(c.Query("page")), categoriesPerPage,
		func(tx *gorm.DB) *gorm.DB { return tx.Order("id") })
	if err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "カテゴリ一覧", gin.H{
		"categories": page,
		"keyword":    keyword,
		"total":      page.Total,
	})
}

// Store
func (cc *CategoryController) Store(c *gin.Context) {
	var form categoryForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	category := models.Category{Name: form.Name}
	if err := cc.DB.Create(&category).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, adminCategoriesPath, utils.FlashMessage, "カテゴリを登録しました。")
}

// Update
func (cc *CategoryController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var category models.Category
	if err := cc.DB.First(&category, id).Error; err != nil {
		respondDBError(c, err)
		return
	}

	var form categoryForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	if err := cc.DB.Model(&category).Update("name", form.Name).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, adminCategoriesPath, utils.FlashMessage, "カテゴリを編集しました。")
}

// Destroy removes the category and detaches it from every restaurant.
func (cc *CategoryController) Destroy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var category models.Category
	if err := cc.DB.First(&category, id).Error; err != nil {
		respondDBError(c, err)
		return
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM category_restaurant WHERE category_id = ?", category.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, adminCategoriesPath, utils.FlashMessage, "カテゴリを削除しました。")
}
