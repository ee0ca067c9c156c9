package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/utils"
)

// Session issues and revokes the signed cookie that identifies a principal.
type Session struct {
	Tokens     *utils.TokenManager
	Store      utils.TokenStore
	CookieName string
	Secure     bool
}

// Start signs a token for id in guard, sets it as the session cookie and
// returns it for API clients.
func (s *Session) Start(c *gin.Context, id uint, guard string) (string, error) {
	token, err := s.Tokens.GenerateToken(id, guard)
	if err != nil {
		return "", err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.Tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// End revokes the current token until it would have expired and clears the cookie.
func (s *Session) End(c *gin.Context) {
	p := auth.FromContext(c)
	if p.TokenID != "" {
		if err := s.Store.Revoke(c.Request.Context(), p.TokenID, s.Tokens.TTL()+time.Minute); err != nil {
			utils.ErrorLogger.Printf("Failed to revoke token %s: %v", p.TokenID, err)
		}
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
