package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const adminTermsPath = "/admin/terms"

type termForm struct {
	Content string `form:"content" binding:"required"`
}

type TermController struct {
	DB *gorm.DB
}

func NewTermController(db *gorm.DB) *TermController {
	return &TermController{DB: db}
}

// Show answers both the public terms page and the admin index.
func (tc *TermController) Show(c *gin.Context) {
	var term models.Term
	if err := tc.DB.Order("id").First(&term).Error; err != nil {
		respondDBError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "利用規約", gin.H{"term": term})
}

func (tc *TermController) find(c *gin.Context) (*models.Term, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var term models.Term
	if err := tc.DB.First(&term, id).Error; err != nil {
		respondDBError(c, err)
		return nil, false
	}
	return &term, true
}

func (tc *TermController) Edit(c *gin.Context) {
	term, ok := tc.find(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "利用規約編集", gin.H{"term": term})
}

func (tc *TermController) Update(c *gin.Context) {
	term, ok := tc.find(c)
	if !ok {
		return
	}

	var form termForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	if err := tc.DB.Model(term).Update("content", form.Content).Error; err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, adminTermsPath, utils.FlashMessage, "利用規約を編集しました。")
}
