package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/utils"
)

// Redirect targets for the route guards.
const (
	LoginPath              = "/login"
	AdminLoginPath         = "/admin/login"
	AdminHomePath          = "/admin/home"
	HomePath               = "/"
	SubscriptionCreatePath = "/subscription/create"
	SubscriptionEditPath   = "/subscription/edit"
)

func guard(redirect func(p auth.Principal) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if location := redirect(auth.FromContext(c)); location != "" {
			utils.Redirect(c, location)
			return
		}
		c.Next()
	}
}

// RedirectIfAdmin keeps administrators on the admin side of the site.
func RedirectIfAdmin() gin.HandlerFunc {
	return guard(func(p auth.Principal) string {
		if p.IsAdministrator() {
			return AdminHomePath
		}
		return ""
	})
}

// RequireUser admits members only.
func RequireUser() gin.HandlerFunc {
	return guard(func(p auth.Principal) string {
		switch {
		case p.IsAdministrator():
			return AdminHomePath
		case p.IsGuest():
			return LoginPath
		}
		return ""
	})
}

// RequireSubscribed admits premium members and sends free members to the
// plan sign-up page.
func RequireSubscribed() gin.HandlerFunc {
	return guard(func(p auth.Principal) string {
		switch {
		case p.IsAdministrator():
			return AdminHomePath
		case p.IsGuest():
			return LoginPath
		case !p.IsPremium():
			return SubscriptionCreatePath
		}
		return ""
	})
}

// RequireNotSubscribed guards the sign-up pages against members who already pay.
func RequireNotSubscribed() gin.HandlerFunc {
	return guard(func(p auth.Principal) string {
		switch {
		case p.IsAdministrator():
			return AdminHomePath
		case p.IsGuest():
			return LoginPath
		case p.IsPremium():
			return SubscriptionEditPath
		}
		return ""
	})
}

// RequireAdmin sends everyone who is not an administrator to the admin login.
func RequireAdmin() gin.HandlerFunc {
	return guard(func(p auth.Principal) string {
		if !p.IsAdministrator() {
			return AdminLoginPath
		}
		return ""
	})
}

// RedirectIfAuthenticated guards the login and registration pages.
func RedirectIfAuthenticated() gin.HandlerFunc {
	return guard(func(p auth.Principal) string {
		switch {
		case p.IsAdministrator():
			return AdminHomePath
		case p.IsMember():
			return HomePath
		}
		return ""
	})
}
