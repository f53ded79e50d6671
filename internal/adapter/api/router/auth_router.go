package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/infrastructure/ratelimit"
)

// SetupAuthRouter initializes session routes. Login and verification are
// cookie based; the session check itself is public so it can clear stale cookies.
func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	authHandler := handler.GetAuthHandler()

	auth := e.Group("/api/auth")
	auth.POST("/login", authHandler.Login, middleware.RateLimit(limiter, ratelimit.ActionLogin))
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/verify-session", authHandler.VerifySession)
	auth.POST("/resend-verification", authHandler.ResendVerification, authMiddleware.Authenticate)
}
