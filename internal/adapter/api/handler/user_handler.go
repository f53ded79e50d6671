package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=50"`
	Username    *string `json:"username" validate:"omitempty,max=30"`
	Status      *string `json:"status" validate:"omitempty,oneof=online offline away"`
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	uid := middleware.UserID(c)

	user, err := h.userUseCase.GetUserProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := middleware.UserID(c)
	user, err := h.userUseCase.UpdateProfile(c.Request().Context(), uid, usecase.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Username:    req.Username,
		Status:      req.Status,
	})
	if err != nil {
		logger.Warn("Profile update for %s failed: %v", uid, err)
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
