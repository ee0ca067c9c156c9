package utils

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	FlashMessage = "flash_message"
	ErrorMessage = "error_message"

	flashContextKey = "flash"
)

var flashKeys = []string{FlashMessage, ErrorMessage}

// SetFlash writes a cookie that survives exactly one redirect.
func SetFlash(c *gin.Context, key, message string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     key,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoadFlash moves pending flash cookies into the request context and expires them.
func LoadFlash(c *gin.Context) {
	flash := map[string]string{}
	for _, key := range flashKeys {
		raw, err := c.Cookie(key)
		if err != nil || raw == "" {
			continue
		}
		if decoded, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			flash[key] = string(decoded)
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:   key,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
	if len(flash) > 0 {
		c.Set(flashContextKey, flash)
	}
}

func FlashFromContext(c *gin.Context) map[string]string {
	v, ok := c.Get(flashContextKey)
	if !ok {
		return nil
	}
	flash, _ := v.(map[string]string)
	return flash
}

// DecodeFlash reads a flash value from a Set-Cookie response, used by tests
// and clients that inspect redirects directly.
func DecodeFlash(resp *http.Response, key string) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == key && ck.Value != "" {
			decoded, err := base64.RawURLEncoding.DecodeString(ck.Value)
			if err != nil {
				return ""
			}
			return string(decoded)
		}
	}
	return ""
}

// sameHost accepts an absolute http(s) URL on this host or a path that
// browsers cannot read as protocol-relative.
func sameHost(r *http.Request, ref string) bool {
	if strings.Contains(ref, "\\") {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if u.Host != "" {
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host == r.Host
	}
	return u.Scheme == "" && strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}
