package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Flash   map[string]string `json:"flash,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
		Flash:   FlashFromContext(c),
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

// RespondValidation answers 422 with one message per offending form field.
func RespondValidation(c *gin.Context, errs map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, JSONResponse{
		Status:  false,
		Message: "入力内容に誤りがあります。",
		Errors:  errs,
	})
}

// Redirect uses 302 for safe methods and 303 after a mutation.
func Redirect(c *gin.Context, location string) {
	code := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	c.Redirect(code, location)
	c.Abort()
}

// RedirectWithFlash stores a one-shot message under key and redirects.
func RedirectWithFlash(c *gin.Context, location, key, message string) {
	SetFlash(c, key, message)
	Redirect(c, location)
}

// RedirectBack returns to the Referer when it points at this host, else fallback.
func RedirectBack(c *gin.Context, fallback, key, message string) {
	location := fallback
	if ref := c.Request.Referer(); ref != "" && sameHost(c.Request, ref) {
		location = ref
	}
	RedirectWithFlash(c, location, key, message)
}
