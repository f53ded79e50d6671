package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/response"
)

type AttachmentHandler struct {
	attachmentUseCase *usecase.AttachmentUseCase
}

func NewAttachmentHandler(attachmentUseCase *usecase.AttachmentUseCase) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentUseCase: attachmentUseCase,
	}
}

func (h *AttachmentHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("file is required", err))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read file", err))
	}
	defer file.Close()

	url, err := h.attachmentUseCase.Upload(
		c.Request().Context(),
		c.Param("id"),
		middleware.UserID(c),
		file,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
	)
	if err != nil {
		logger.Warn("Attachment upload to chat %s failed: %v", c.Param("id"), err)
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"url": url})
}
