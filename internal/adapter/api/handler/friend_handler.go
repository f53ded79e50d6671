package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/response"
)

type FriendHandler struct {
	friendUseCase *usecase.FriendUseCase
}

func NewFriendHandler(friendUseCase *usecase.FriendUseCase) *FriendHandler {
	return &FriendHandler{
		friendUseCase: friendUseCase,
	}
}

func (h *FriendHandler) Search(c echo.Context) error {
	users, err := h.friendUseCase.Search(c.Request().Context(), c.QueryParam("q"), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, users)
}

func (h *FriendHandler) AddFriend(c echo.Context) error {
	if err := h.friendUseCase.AddFriend(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"friendId": c.Param("id")})
}

func (h *FriendHandler) Block(c echo.Context) error {
	if err := h.friendUseCase.Block(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"userId": c.Param("id"), "blocked": true})
}

func (h *FriendHandler) Unblock(c echo.Context) error {
	if err := h.friendUseCase.Unblock(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{"userId": c.Param("id"), "blocked": false})
}
