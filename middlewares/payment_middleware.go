package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/utils"
)

// BillingSecurityHeaders adds no-store caching and a tighter permissions
// policy to subscription and webhook endpoints.
func BillingSecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(self \"https://js.stripe.com\")")
		c.Next()
	}
}

// LogBillingRequest logs every subscription request with its member id.
func LogBillingRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		utils.InfoLogger.Printf(
			"Billing Request - Method: %s, Path: %s, User: %d, Status: %d, Duration: %v",
			method, path, auth.FromContext(c).UserID(), status, duration,
		)
	}
}
