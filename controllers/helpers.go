package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("お探しのページは見つかりませんでした。")
	ErrInternal      = errors.New("サーバーエラーが発生しました。")
	msgInvalidAccess = "不正なアクセスです。"
)

// paramID parses a positive numeric route parameter and answers 404 when it
// is malformed.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusNotFound, ErrNotFound)
		return 0, false
	}
	return uint(id), true
}

// respondDBError maps a missing row to 404 and logs anything else as a 500.
func respondDBError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusNotFound, ErrNotFound)
		return
	}
	utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	utils.RespondError(c, http.StatusInternalServerError, ErrInternal)
}

// keywordLike wraps a search keyword for a LIKE comparison.
func keywordLike(keyword string) string {
	return "%" + keyword + "%"
}
