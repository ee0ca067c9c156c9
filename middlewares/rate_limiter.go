package middlewares

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/nagoyameshi/utils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	idle     time.Duration
	visitors map[string]*visitor
	mu       sync.Mutex
	swept    time.Time
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		idle:     10 * time.Minute,
		visitors: make(map[string]*visitor),
		swept:    time.Now(),
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.swept) > rl.idle {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idle {
				delete(rl.visitors, key)
			}
		}
		rl.swept = now
	}

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("リクエストが多すぎます。しばらくしてから再度お試しください。"))
			c.Abort()
			return
		}
		c.Next()
	}
}
