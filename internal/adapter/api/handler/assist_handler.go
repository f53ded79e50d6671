package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/response"
)

type AssistHandler struct {
	assistUseCase *usecase.AssistUseCase
}

func NewAssistHandler(assistUseCase *usecase.AssistUseCase) *AssistHandler {
	return &AssistHandler{
		assistUseCase: assistUseCase,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

func (h *AssistHandler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	text, err := h.assistUseCase.Generate(c.Request().Context(), req.Prompt)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"text": text})
}
