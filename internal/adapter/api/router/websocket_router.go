package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

// SetupWebSocketRouter sets up the realtime endpoint. Browsers send the session
// cookie with the upgrade request.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()

	e.GET("/api/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate)
}
