package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/domain/entity"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/response"
	"chatterbox/pkg/utils"
)

const (
	defaultMessagePage = 30
	maxMessagePage     = 100
)

type ChatHandler struct {
	chatUseCase     *usecase.ChatUseCase
	chatListUseCase *usecase.ChatListUseCase
	messageUseCase  *usecase.MessageUseCase
}

func NewChatHandler(
	chatUseCase *usecase.ChatUseCase,
	chatListUseCase *usecase.ChatListUseCase,
	messageUseCase *usecase.MessageUseCase,
) *ChatHandler {
	return &ChatHandler{
		chatUseCase:     chatUseCase,
		chatListUseCase: chatListUseCase,
		messageUseCase:  messageUseCase,
	}
}

type createChatRequest struct {
	Type           string   `json:"type" validate:"required,oneof=direct group"`
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,required"`
	Name           string   `json:"name" validate:"omitempty,max=100"`
}

type sendMessageRequest struct {
	MessageID   string   `json:"messageId" validate:"omitempty,uuid"`
	Content     string   `json:"content" validate:"required,max=4000"`
	ReplyTo     string   `json:"replyTo"`
	Attachments []string `json:"attachments" validate:"omitempty,max=10,dive,url"`
}

// ListChats returns the caller's chat list as one snapshot. Live updates are
// served over the websocket.
func (h *ChatHandler) ListChats(c echo.Context) error {
	list, err := h.chatListUseCase.Build(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, list)
}

func (h *ChatHandler) CreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.chatUseCase.CreateChat(c.Request().Context(), middleware.UserID(c), usecase.CreateChatInput{
		Type:           entity.ChatType(req.Type),
		ParticipantIDs: req.ParticipantIDs,
		Name:           req.Name,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if !result.Created {
		return response.Success(c, result)
	}
	return response.Created(c, result)
}

func (h *ChatHandler) GetChat(c echo.Context) error {
	chat, err := h.chatUseCase.GetChat(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	params := utils.GetCursorParams(c, defaultMessagePage, maxMessagePage)

	messages, err := h.messageUseCase.ListMessages(
		c.Request().Context(), c.Param("id"), middleware.UserID(c), params.Limit, params.Before,
	)
	if err != nil {
		return response.Error(c, err)
	}

	var next string
	if len(messages) == params.Limit {
		next = utils.FormatCursor(messages[len(messages)-1].Timestamp)
	}
	return response.Cursor(c, messages, next)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.Send(c.Request().Context(), usecase.SendMessageInput{
		MessageID:   req.MessageID,
		ChatID:      c.Param("id"),
		SenderID:    middleware.UserID(c),
		Content:     req.Content,
		ReplyTo:     req.ReplyTo,
		Attachments: req.Attachments,
	})
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && message != nil {
			// The client retries with the same id.
			return response.Error(c, appErr.WithDetails(map[string]string{"messageId": message.ID}))
		}
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	if err := h.messageUseCase.MarkRead(c.Request().Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"chatId": c.Param("id")})
}
