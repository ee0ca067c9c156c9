package middlewares

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

// AuthOptions carries what ResolvePrincipal needs to turn a token into a principal.
type AuthOptions struct {
	DB            *gorm.DB
	Tokens        *utils.TokenManager
	Store         utils.TokenStore
	Subscriptions *services.SubscriptionService
	CookieName    string
}

// ResolvePrincipal reads the session cookie (or a Bearer token) and stores
// the request's principal in the context. Anything that does not check out
// leaves the request as a guest; guards decide where guests may go.
func ResolvePrincipal(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth.WithPrincipal(c, resolve(c, opts))
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func resolve(c *gin.Context, opts AuthOptions) auth.Principal {
	raw := tokenFromRequest(c, opts.CookieName)
	if raw == "" {
		return auth.Guest()
	}

	claims, err := opts.Tokens.ParseToken(raw)
	if err != nil {
		return auth.Guest()
	}

	revoked, err := opts.Store.IsRevoked(c.Request.Context(), claims.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to check token revocation: %v", err)
		return auth.Guest()
	}
	if revoked {
		return auth.Guest()
	}

	id, err := claims.SubjectID()
	if err != nil {
		return auth.Guest()
	}

	db := opts.DB.WithContext(c.Request.Context())
	switch claims.Guard {
	case utils.GuardAdmin:
		var admin models.Admin
		if err := db.First(&admin, id).Error; err != nil {
			logLookupError("admin", id, err)
			return auth.Guest()
		}
		return auth.Administrator(&admin, claims.ID)
	default:
		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			logLookupError("user", id, err)
			return auth.Guest()
		}
		subscribed, err := opts.Subscriptions.Subscribed(c.Request.Context(), user.ID)
		if err != nil {
			utils.ErrorLogger.Printf("Failed to check subscription for user %d: %v", user.ID, err)
		}
		return auth.Member(&user, subscribed, claims.ID)
	}
}

func logLookupError(kind string, id uint, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	utils.ErrorLogger.Printf("Failed to load %s %d for token: %v", kind, id, err)
}
