package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	katakanaPattern = regexp.MustCompile(`^[ァ-ヴー\s]+$`)
	registerOnce    sync.Once
)

// RegisterValidators installs the custom rules on gin's validator and makes
// error fields report their form names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("digits", validateDigits)
		_ = v.RegisterValidation("katakana", func(fl validator.FieldLevel) bool {
			return katakanaPattern.MatchString(fl.Field().String())
		})
	})
}

// digits=7 requires exactly 7 ASCII digits, digits=10-11 a length in range.
func validateDigits(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	minLen, maxLen, ok := parseDigitsParam(fl.Param())
	if !ok || len(value) < minLen || len(value) > maxLen {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseDigitsParam(param string) (int, int, bool) {
	lo, hi, found := strings.Cut(param, "-")
	minLen, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, false
	}
	if !found {
		return minLen, minLen, true
	}
	maxLen, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, false
	}
	return minLen, maxLen, true
}

// BindForm binds the request form into obj and converts any failure into
// per-field messages. A nil map means the form is valid.
func BindForm(c *gin.Context, obj interface{}) map[string]string {
	err := c.ShouldBind(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, exists := out[fe.Field()]; !exists {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須項目です。", field)
	case "email":
		return fmt.Sprintf("%sには有効なメールアドレスを指定してください。", field)
	case "lowercase":
		return fmt.Sprintf("%sは小文字で入力してください。", field)
	case "katakana":
		return fmt.Sprintf("%sは全角カタカナで入力してください。", field)
	case "digits":
		return fmt.Sprintf("%sは%s桁の数字で入力してください。", field, strings.Replace(fe.Param(), "-", "〜", 1))
	case "datetime":
		return fmt.Sprintf("%sの形式が正しくありません。", field)
	case "max":
		if isString {
			return fmt.Sprintf("%sは%s文字以下で入力してください。", field, fe.Param())
		}
		return fmt.Sprintf("%sには%s以下の値を指定してください。", field, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%sは%s文字以上で入力してください。", field, fe.Param())
		}
		return fmt.Sprintf("%sには%s以上の値を指定してください。", field, fe.Param())
	default:
		return fmt.Sprintf("%sの値が正しくありません。", field)
	}
}
