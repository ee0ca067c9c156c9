package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const (
	reservationsPath    = "/reservations"
	reservationsPerPage = 15
)

type reservationForm struct {
	ReservationDate string `form:"reservation_date" binding:"required,datetime=2006-01-02"`
	ReservationTime string `form:"reservation_time" binding:"required,datetime=15:04"`
	NumberOfPeople  int    `form:"number_of_people" binding:"required,min=1,max=50"`
}

func (f reservationForm) reservedAt() (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", f.ReservationDate+" "+f.ReservationTime, time.Local)
}

type ReservationController struct {
	DB *gorm.DB
}

func NewReservationController(db *gorm.DB) *ReservationController {
	return &ReservationController{DB: db}
}

// Index lists the member's own reservations, latest booking time first.
func (rc *ReservationController) Index(c *gin.Context) {
	query := rc.DB.Model(&models.Reservation{}).Where("user_id = ?", auth.FromContext(c).UserID())
	page, err := utils.Paginate[models.Reservation](query, utils.PageFromQuery(c.Query("page")), reservationsPerPage,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Order("reserved_datetime desc").Order("id desc").Preload("Restaurant")
		})
	if err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "予約一覧", gin.H{"reservations": page})
}

func (rc *ReservationController) Create(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "予約", gin.H{"restaurant": restaurant})
}

func (rc *ReservationController) Store(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, id).Error; err != nil {
		respondDBError(c, err)
		return
	}

	var form reservationForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}
	reservedAt, err := form.reservedAt()
	if err != nil {
		utils.RespondValidation(c, map[string]string{"reservation_date": "予約日時の形式が正しくありません。"})
		return
	}

	reservation := models.Reservation{
		ReservedDatetime: reservedAt,
		NumberOfPeople:   form.NumberOfPeople,
		RestaurantID:     restaurant.ID,
		UserID:           auth.FromContext(c).UserID(),
	}
	if err := rc.DB.Create(&reservation).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, reservationsPath, utils.FlashMessage, "予約が完了しました。")
}

// Destroy cancels one of the member's reservations.
func (rc *ReservationController) Destroy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var reservation models.Reservation
	if err := rc.DB.First(&reservation, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !reservation.OwnedBy(auth.FromContext(c).UserID()) {
		utils.RedirectWithFlash(c, reservationsPath, utils.ErrorMessage, msgInvalidAccess)
		return
	}

	if err := rc.DB.Delete(&reservation).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, reservationsPath, utils.FlashMessage, "予約をキャンセルしました。")
}
