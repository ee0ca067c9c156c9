package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const (
	adminRestaurantsPath  = "/admin/restaurants"
	adminRestaurantsLimit = 15
)

type restaurantForm struct {
	Name              string   `form:"name" binding:"required,max=255"`
	Description       string   `form:"description" binding:"required"`
	LowestPrice       *int     `form:"lowest_price" binding:"required,min=0"`
	HighestPrice      *int     `form:"highest_price" binding:"required,min=0"`
	PostalCode        string   `form:"postal_code" binding:"required,digits=7"`
	Address           string   `form:"address" binding:"required,max=255"`
	OpeningTime       string   `form:"opening_time" binding:"required,datetime=15:04"`
	ClosingTime       string   `form:"closing_time" binding:"required,datetime=15:04"`
	SeatingCapacity   *int     `form:"seating_capacity" binding:"required,min=0"`
	CategoryIDs       []string `form:"category_ids[]"`
	RegularHolidayIDs []string `form:"regular_holiday_ids[]"`
}

// crossCheck adds the rules that compare two fields.
func (f *restaurantForm) crossCheck(errs map[string]string) map[string]string {
	add := func(field, msg string) {
		if errs == nil {
			errs = map[string]string{}
		}
		if _, exists := errs[field]; !exists {
			errs[field] = msg
		}
	}
	if f.LowestPrice != nil && f.HighestPrice != nil && *f.LowestPrice > *f.HighestPrice {
		add("lowest_price", "最低価格には最高価格以下の値を指定してください。")
		add("highest_price", "最高価格には最低価格以上の値を指定してください。")
	}
	if f.OpeningTime != "" && f.ClosingTime != "" && f.OpeningTime >= f.ClosingTime {
		add("opening_time", "開店時間には閉店時間より前の時間を指定してください。")
		add("closing_time", "閉店時間には開店時間より後の時間を指定してください。")
	}
	return errs
}

func (f *restaurantForm) apply(r *models.Restaurant) {
	r.Name = f.Name
	r.Description = f.Description
	r.LowestPrice = *f.LowestPrice
	r.HighestPrice = *f.HighestPrice
	r.PostalCode = f.PostalCode
	r.Address = f.Address
	r.OpeningTime = f.OpeningTime
	r.ClosingTime = f.ClosingTime
	r.SeatingCapacity = *f.SeatingCapacity
}

// parseIDs drops empty and non-numeric entries.
func parseIDs(raw []string) []uint {
	ids := make([]uint, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	return ids
}

type AdminRestaurantController struct {
	DB      *gorm.DB
	Storage services.ImageStorage
}

func NewAdminRestaurantController(db *gorm.DB, storage services.ImageStorage) *AdminRestaurantController {
	return &AdminRestaurantController{DB: db, Storage: storage}
}

func (arc *AdminRestaurantController) Index(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	query := arc.DB.Model(&models.Restaurant{})
	if keyword != "" {
		query = query.Where("name LIKE ?", keywordLike(keyword))
	}

	page, err := utils.Paginate[models.Restaurant](query, utils.PageFromQuery(c.Query("page")), adminRestaurantsLimit,
		func(tx *gorm.DB) *gorm.DB { return tx.Order("id") })
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "店舗一覧", gin.H{
		"restaurants": page,
		"keyword":     keyword,
		"total":       page.Total,
	})
}

func (arc *AdminRestaurantController) find(c *gin.Context) (*models.Restaurant, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var restaurant models.Restaurant
	err := arc.DB.Preload("Categories").Preload("RegularHolidays").First(&restaurant, id).Error
	if err != nil {
		respondDBError(c, err)
		return nil, false
	}
	return &restaurant, true
}

func (arc *AdminRestaurantController) Show(c *gin.Context) {
	restaurant, ok := arc.find(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, restaurant.Name, gin.H{"restaurant": restaurant})
}

// formOptions lists every category and holiday for the create and edit forms.
func (arc *AdminRestaurantController) formOptions() (gin.H, error) {
	var categories []models.Category
	if err := arc.DB.Order("id").Find(&categories).Error; err != nil {
		return nil, err
	}
	var holidays []models.RegularHoliday
	if err := arc.DB.Order("day_index").Order("id").Find(&holidays).Error; err != nil {
		return nil, err
	}
	return gin.H{"categories": categories, "regular_holidays": holidays}, nil
}

func (arc *AdminRestaurantController) Create(c *gin.Context) {
	data, err := arc.formOptions()
	if err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "店舗登録", data)
}

func (arc *AdminRestaurantController) Edit(c *gin.Context) {
	restaurant, ok := arc.find(c)
	if !ok {
		return
	}
	data, err := arc.formOptions()
	if err != nil {
		respondDBError(c, err)
		return
	}

	holidayIDs := make([]uint, 0, len(restaurant.RegularHolidays))
	for _, h := range restaurant.RegularHolidays {
		holidayIDs = append(holidayIDs, h.ID)
	}
	data["restaurant"] = restaurant
	data["category_ids"] = restaurant.CategoryIDs()
	data["regular_holiday_ids"] = holidayIDs
	utils.RespondJSON(c, http.StatusOK, "店舗編集", data)
}

// bind validates the form and the optional image upload together.
func (arc *AdminRestaurantController) bind(c *gin.Context) (*restaurantForm, *multipart.FileHeader, map[string]string) {
	var form restaurantForm
	errs := utils.BindForm(c, &form)
	errs = form.crossCheck(errs)

	image, err := c.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["image"] = "画像を読み込めませんでした。"
		image = nil
	}
	if image != nil {
		switch verr := arc.Storage.Validate(image); {
		case errors.Is(verr, services.ErrImageExtension):
			if errs == nil {
				errs = map[string]string{}
			}
			errs["image"] = fmt.Sprintf("画像には%s形式のファイルを指定してください。", services.AllowedImageFormat)
		case errors.Is(verr, services.ErrImageTooLarge):
			if errs == nil {
				errs = map[string]string{}
			}
			errs["image"] = "画像には2048KB以下のファイルを指定してください。"
		}
	}
	return &form, image, errs
}

// syncAssociations replaces the restaurant's categories and holidays with ids.
func syncAssociations(tx *gorm.DB, restaurant *models.Restaurant, categoryIDs, holidayIDs []uint) error {
	var categories []models.Category
	if len(categoryIDs) > 0 {
		if err := tx.Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
			return err
		}
	}
	if err := replaceAssociation(tx, restaurant, "Categories", categories); err != nil {
		return fmt.Errorf("sync categories: %w", err)
	}

	var holidays []models.RegularHoliday
	if len(holidayIDs) > 0 {
		if err := tx.Where("id IN ?", holidayIDs).Find(&holidays).Error; err != nil {
			return err
		}
	}
	if err := replaceAssociation(tx, restaurant, "RegularHolidays", holidays); err != nil {
		return fmt.Errorf("sync regular holidays: %w", err)
	}
	return nil
}

func replaceAssociation[T any](tx *gorm.DB, restaurant *models.Restaurant, name string, values []T) error {
	assoc := tx.Model(restaurant).Association(name)
	if len(values) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

func (arc *AdminRestaurantController) storeImage(image *multipart.FileHeader) (string, error) {
	if image == nil {
		return "", nil
	}
	path, err := arc.Storage.Store(image)
	if err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

func (arc *AdminRestaurantController) Store(c *gin.Context) {
	form, image, errs := arc.bind(c)
	if errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	name, err := arc.storeImage(image)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to store restaurant image: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, ErrInternal)
		return
	}

	restaurant := models.Restaurant{Image: name}
	form.apply(&restaurant)
	err = arc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories", "RegularHolidays").Create(&restaurant).Error; err != nil {
			return err
		}
		return syncAssociations(tx, &restaurant, parseIDs(form.CategoryIDs), parseIDs(form.RegularHolidayIDs))
	})
	if err != nil {
		arc.Storage.Delete(name)
		respondDBError(c, err)
		return
	}

	utils.InfoLogger.Printf("Restaurant %d created: %s", restaurant.ID, restaurant.Name)
	utils.RedirectWithFlash(c, adminRestaurantsPath, utils.FlashMessage, "店舗を登録しました。")
}

func (arc *AdminRestaurantController) Update(c *gin.Context) {
	restaurant, ok := arc.find(c)
	if !ok {
		return
	}
	form, image, errs := arc.bind(c)
	if errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	name, err := arc.storeImage(image)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to store restaurant image: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, ErrInternal)
		return
	}

	oldImage := restaurant.Image
	form.apply(restaurant)
	if name != "" {
		restaurant.Image = name
	}

	err = arc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(restaurant).
			Select("name", "image", "description", "lowest_price", "highest_price", "postal_code",
				"address", "opening_time", "closing_time", "seating_capacity").
			Updates(restaurant).Error; err != nil {
			return err
		}
		return syncAssociations(tx, restaurant, parseIDs(form.CategoryIDs), parseIDs(form.RegularHolidayIDs))
	})
	if err != nil {
		arc.Storage.Delete(name)
		respondDBError(c, err)
		return
	}
	if name != "" && oldImage != "" {
		if err := arc.Storage.Delete(oldImage); err != nil {
			utils.ErrorLogger.Printf("Failed to delete old image %s: %v", oldImage, err)
		}
	}

	utils.RedirectWithFlash(c, fmt.Sprintf("%s/%d", adminRestaurantsPath, restaurant.ID), utils.FlashMessage, "店舗を編集しました。")
}

// Destroy deletes the restaurant together with its reviews, reservations,
// favorites and join rows.
func (arc *AdminRestaurantController) Destroy(c *gin.Context) {
	restaurant, ok := arc.find(c)
	if !ok {
		return
	}

	err := arc.DB.Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{&models.Review{}, &models.Reservation{}, &models.Favorite{}} {
			if err := tx.Where("restaurant_id = ?", restaurant.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(restaurant).Association("Categories").Clear(); err != nil {
			return err
		}
		if err := tx.Model(restaurant).Association("RegularHolidays").Clear(); err != nil {
			return err
		}
		return tx.Delete(restaurant).Error
	})
	if err != nil {
		respondDBError(c, err)
		return
	}
	if err := arc.Storage.Delete(restaurant.Image); err != nil {
		utils.ErrorLogger.Printf("Failed to delete image %s: %v", restaurant.Image, err)
	}

	utils.InfoLogger.Printf("Restaurant %d deleted", restaurant.ID)
	utils.RedirectWithFlash(c, adminRestaurantsPath, utils.FlashMessage, "店舗を削除しました。")
}
