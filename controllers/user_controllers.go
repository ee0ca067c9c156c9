package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	HomePath         = "/"
	userPath         = "/user"
	msgLoginFailed   = "ログイン情報が正しくありません。"
	msgEmailTaken    = "メールアドレスの値は既に存在しています。"
	passwordHashCost = bcrypt.DefaultCost
)

type profileForm struct {
	Name        string `form:"name" binding:"required,max=255"`
	Kana        string `form:"kana" binding:"required,katakana,max=255"`
	Email       string `form:"email" binding:"required,lowercase,email,max=255"`
	PostalCode  string `form:"postal_code" binding:"required,digits=7"`
	Address     string `form:"address" binding:"required,max=255"`
	PhoneNumber string `form:"phone_number" binding:"required,digits=10-11"`
	Birthday    string `form:"birthday" binding:"omitempty,digits=8"`
	Occupation  string `form:"occupation" binding:"omitempty,max=255"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (f profileForm) apply(user *models.User) {
	user.Name = f.Name
	user.Kana = f.Kana
	user.Email = f.Email
	user.PostalCode = f.PostalCode
	user.Address = f.Address
	user.PhoneNumber = f.PhoneNumber
	user.Birthday = optional(f.Birthday)
	user.Occupation = optional(f.Occupation)
}

type registerForm struct {
	profileForm
	Password             string `form:"password" binding:"required,min=8,max=255"`
	PasswordConfirmation string `form:"password_confirmation" binding:"required,eqfield=Password"`
}

type loginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

type UserController struct {
	DB      *gorm.DB
	Session *Session
}

func NewUserController(db *gorm.DB, session *Session) *UserController {
	return &UserController{DB: db, Session: session}
}

// emailTaken reports whether another user already owns email.
func (uc *UserController) emailTaken(email string, exceptID uint) (bool, error) {
	var count int64
	err := uc.DB.Model(&models.User{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (uc *UserController) RegisterForm(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "会員登録", gin.H{
		"fields": []string{"name", "kana", "email", "password", "password_confirmation", "postal_code", "address", "phone_number", "birthday", "occupation"},
	})
}

// Register creates a member account and signs it in.
func (uc *UserController) Register(c *gin.Context) {
	var form registerForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	taken, err := uc.emailTaken(form.Email, 0)
	if err != nil {
		respondDBError(c, err)
		return
	}
	if taken {
		utils.RespondValidation(c, map[string]string{"email": msgEmailTaken})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), passwordHashCost)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to hash password: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, ErrInternal)
		return
	}

	user := models.User{Password: string(hashed)}
	form.apply(&user)
	if err := uc.DB.Create(&user).Error; err != nil {
		respondDBError(c, err)
		return
	}

	if _, err := uc.Session.Start(c, user.ID, utils.GuardUser); err != nil {
		utils.ErrorLogger.Printf("Failed to start session for user %d: %v", user.ID, err)
		utils.RespondError(c, http.StatusInternalServerError, ErrInternal)
		return
	}

	utils.InfoLogger.Printf("New user registered: %s", user.Email)
	utils.RedirectWithFlash(c, HomePath, utils.FlashMessage, "会員登録が完了しました。")
}

func (uc *UserController) LoginForm(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "ログイン", gin.H{"fields": []string{"email", "password"}})
}

// Login checks the member's credentials and sets the session cookie.
func (uc *UserController) Login(c *gin.Context) {
	var form loginForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	var user models.User
	if err := uc.DB.Where("email = ?", strings.ToLower(form.Email)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondDBError(c, err)
			return
		}
		utils.RespondValidation(c, map[string]string{"email": msgLoginFailed})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)); err != nil {
		utils.RespondValidation(c, map[string]string{"email": msgLoginFailed})
		return
	}

	if _, err := uc.Session.Start(c, user.ID, utils.GuardUser); err != nil {
		utils.ErrorLogger.Printf("Failed to start session for user %d: %v", user.ID, err)
		utils.RespondError(c, http.StatusInternalServerError, ErrInternal)
		return
	}

	utils.InfoLogger.Printf("Login successful for user: %s", user.Email)
	utils.Redirect(c, HomePath)
}

func (uc *UserController) Logout(c *gin.Context) {
	uc.Session.End(c)
	utils.Redirect(c, HomePath)
}

// Index shows the signed-in member's profile.
func (uc *UserController) Index(c *gin.Context) {
	p := auth.FromContext(c)
	utils.RespondJSON(c, http.StatusOK, "会員情報", gin.H{
		"user":       p.User,
		"subscribed": p.IsPremium(),
	})
}

// ownProfile rejects any :id other than the member's own.
func (uc *UserController) ownProfile(c *gin.Context) (*models.User, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	p := auth.FromContext(c)
	if id != p.UserID() {
		var exists int64
		if err := uc.DB.Model(&models.User{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			respondDBError(c, err)
			return nil, false
		}
		if exists == 0 {
			utils.RespondError(c, http.StatusNotFound, ErrNotFound)
			return nil, false
		}
		utils.RedirectWithFlash(c, userPath, utils.ErrorMessage, msgInvalidAccess)
		return nil, false
	}
	return p.User, true
}

func (uc *UserController) Edit(c *gin.Context) {
	user, ok := uc.ownProfile(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "会員情報編集", gin.H{"user": user})
}

func (uc *UserController) Update(c *gin.Context) {
	user, ok := uc.ownProfile(c)
	if !ok {
		return
	}

	var form profileForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	taken, err := uc.emailTaken(form.Email, user.ID)
	if err != nil {
		respondDBError(c, err)
		return
	}
	if taken {
		utils.RespondValidation(c, map[string]string{"email": msgEmailTaken})
		return
	}

	form.apply(user)
	err = uc.DB.Model(user).Select("name", "kana", "email", "postal_code", "address", "phone_number", "birthday", "occupation").
		Updates(user).Error
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, userPath, utils.FlashMessage, "会員情報を編集しました。")
}
