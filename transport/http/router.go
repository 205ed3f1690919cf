package http

import (
	"github.com/floppfun/walletauth/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter sets up the Gin router. A nil limiter disables rate limiting.
func SetupRouter(authService *service.AuthService, limiter *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Create handlers
	handlers := NewAuthHandlers(authService)

	router.GET("/healthz", handlers.Health)

	// Auth routes
	auth := router.Group("/auth")
	if limiter != nil {
		auth.Use(RateLimit(limiter))
	}
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
