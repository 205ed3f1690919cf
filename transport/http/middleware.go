package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/floppfun/walletauth/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	ContextAddressKey = "walletAddress"
	ContextSessionKey = "sessionID"
)

// bearerToken extracts the token from an "Authorization: Bearer" header
func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")

	// Check if the Authorization header is present and in correct format
	if len(auth) < 8 || !strings.EqualFold(auth[:7], "Bearer ") {
		return "", false
	}

	token := strings.TrimSpace(auth[7:])
	return token, token != ""
}

// AuthMiddleware creates middleware that validates session tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		session, err := authService.ValidateSessionToken(c.Request.Context(), token)
		if err != nil {
			status, msg := sessionError(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(ContextAddressKey, session.Address)
		c.Set(ContextSessionKey, session.ID)

		c.Next()
	}
}

// RateLimiter hands out one token bucket per client key.
// When maxKeys is reached the table is reset rather than grown.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	maxKeys  int
}

// NewRateLimiter allows rps requests per second per key with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}

	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		maxKeys:  10000,
	}
}

// Allow reports whether a request for key may proceed at time now.
func (rl *RateLimiter) Allow(key string, now time.Time) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= rl.maxKeys {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// RateLimit rejects clients that exceed the limiter with 429
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
