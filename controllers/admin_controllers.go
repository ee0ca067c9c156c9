package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	adminHomePath  = "/admin/home"
	adminLoginPath = "/admin/login"
	usersPerPage   = 15
)

type AdminController struct {
	DB        *gorm.DB
	Session   *Session
	Dashboard *services.DashboardService
}

func NewAdminController(db *gorm.DB, session *Session, dashboard *services.DashboardService) *AdminController {
	return &AdminController{DB: db, Session: session, Dashboard: dashboard}
}

func (ac *AdminController) LoginForm(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "管理者ログイン", gin.H{"fields": []string{"email", "password"}})
}

func (ac *AdminController) Login(c *gin.Context) {
	var form loginForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	var admin models.Admin
	if err := ac.DB.Where("email = ?", strings.ToLower(form.Email)).First(&admin).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondDBError(c, err)
			return
		}
		utils.RespondValidation(c, map[string]string{"email": msgLoginFailed})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(form.Password)); err != nil {
		utils.RespondValidation(c, map[string]string{"email": msgLoginFailed})
		return
	}

	if _, err := ac.Session.Start(c, admin.ID, utils.GuardAdmin); err != nil {
		utils.ErrorLogger.Printf("Failed to start session for admin %d: %v", admin.ID, err)
		utils.RespondError(c, http.StatusInternalServerError, ErrInternal)
		return
	}

	utils.InfoLogger.Printf("Admin login successful: %s", admin.Email)
	utils.Redirect(c, adminHomePath)
}

func (ac *AdminController) Logout(c *gin.Context) {
	ac.Session.End(c)
	utils.Redirect(c, adminLoginPath)
}

// Home returns the dashboard figures.
func (ac *AdminController) Home(c *gin.Context) {
	stats, err := ac.Dashboard.Stats(c.Request.Context())
	if err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "管理者ホーム", stats)
}

// Users lists members, optionally filtered by name or kana.
func (ac *AdminController) Users(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	query := ac.DB.Model(&models.User{})
	if keyword != "" {
		query = query.Where("(name LIKE ? OR kana LIKE ?)", keywordLike(keyword), keywordLike(keyword))
	}

	page, err := utils.Paginate[models.User](query, utils.PageFromQuery(c.Query("page")), usersPerPage,
		func(tx *gorm.DB) *gorm.DB { return tx.Order("id") })
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "会員一覧", gin.H{
		"users":   page,
		"keyword": keyword,
		"total":   page.Total,
	})
}

func (ac *AdminController) ShowUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var user models.User
	if err := ac.DB.First(&user, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "会員詳細", gin.H{"user": user})
}
