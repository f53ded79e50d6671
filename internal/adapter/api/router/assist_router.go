package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

func SetupAssistRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	assistHandler := handler.GetAssistHandler()

	e.POST("/api/gemini", assistHandler.Generate, authMiddleware.Authenticate)
}
