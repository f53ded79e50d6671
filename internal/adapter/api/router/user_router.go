package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	userHandler := handler.GetUserHandler()
	friendHandler := handler.GetFriendHandler()

	users := e.Group("/api/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("/me", userHandler.GetProfile)
	users.PATCH("/me", userHandler.UpdateProfile)
	users.GET("/search", friendHandler.Search)
	users.POST("/:id/block", friendHandler.Block)
	users.DELETE("/:id/block", friendHandler.Unblock)

	friends := e.Group("/api/friends")
	friends.Use(authMiddleware.Authenticate)

	friends.POST("/:id", friendHandler.AddFriend)
}
