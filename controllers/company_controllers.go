package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const adminCompanyPath = "/admin/company"

type companyForm struct {
	Name              string `form:"name" binding:"required,max=255"`
	PostalCode        string `form:"postal_code" binding:"required,digits=7"`
	Address           string `form:"address" binding:"required,max=255"`
	Representative    string `form:"representative" binding:"required,max=255"`
	EstablishmentDate string `form:"establishment_date" binding:"required,max=255"`
	Capital           string `form:"capital" binding:"required,max=255"`
	Business          string `form:"business" binding:"required,max=255"`
	NumberOfEmployees string `form:"number_of_employees" binding:"required,max=255"`
}

// CompanyController serves the company profile, a single row shown by
// lowest id.
type CompanyController struct {
	DB *gorm.DB
}

func NewCompanyController(db *gorm.DB) *CompanyController {
	return &CompanyController{DB: db}
}

func (cc *CompanyController) first(c *gin.Context) (*models.Company, bool) {
	var company models.Company
	if err := cc.DB.Order("id").First(&company).Error; err != nil {
		respondDBError(c, err)
		return nil, false
	}
	return &company, true
}

// Show answers both the public company page and the admin index.
func (cc *CompanyController) Show(c *gin.Context) {
	company, ok := cc.first(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "会社概要", gin.H{"company": company})
}

func (cc *CompanyController) find(c *gin.Context) (*models.Company, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var company models.Company
	if err := cc.DB.First(&company, id).Error; err != nil {
		respondDBError(c, err)
		return nil, false
	}
	return &company, true
}

func (cc *CompanyController) Edit(c *gin.Context) {
	company, ok := cc.find(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "会社概要編集", gin.H{"company": company})
}

func (cc *CompanyController) Update(c *gin.Context) {
	company, ok := cc.find(c)
	if !ok {
		return
	}

	var form companyForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	err := cc.DB.Model(company).Updates(map[string]interface{}{
		"name":                form.Name,
		"postal_code":         form.PostalCode,
		"address":             form.Address,
		"representative":      form.Representative,
		"establishment_date":  form.EstablishmentDate,
		"capital":             form.Capital,
		"business":            form.Business,
		"number_of_employees": form.NumberOfEmployees,
	}).Error
	if err != nil {
		respondDBError(c, err)
		return
	}

	utils.RedirectWithFlash(c, adminCompanyPath, utils.FlashMessage, "会社概要を編集しました。")
}
