package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

// SetupChatRouter sets up chat and message routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()
	attachmentHandler := handler.GetAttachmentHandler()

	chats := e.Group("/api/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.GET("", chatHandler.ListChats)
	chats.POST("", chatHandler.CreateChat)
	chats.GET("/:id", chatHandler.GetChat)
	chats.POST("/:id/read", chatHandler.MarkRead)

	chats.GET("/:id/messages", chatHandler.ListMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage)
	chats.POST("/:id/attachments", attachmentHandler.Upload)
}
