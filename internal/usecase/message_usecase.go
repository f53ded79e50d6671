package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/internal/infrastructure/metrics"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

type SendMessageInput struct {
	// MessageID is assigned by Prepare when empty. A retry reuses it so a first
	// attempt that did land is not stored twice.
	MessageID   string
	ChatID      string
	SenderID    string
	Content     string
	ReplyTo     string
	Attachments []string
}

type MessageUseCase struct {
	chatRepo    repository.ChatRepository
	rateLimiter *ratelimit.RateLimiter
	now         func() time.Time
}

func NewMessageUseCase(chatRepo repository.ChatRepository, rateLimiter *ratelimit.RateLimiter) *MessageUseCase {
	return &MessageUseCase{
		chatRepo:    chatRepo,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

func (uc *MessageUseCase) allow(userID, action string) error {
	if uc.rateLimiter == nil {
		return nil
	}
	if ok, wait := uc.rateLimiter.Allow(userID, action); !ok {
		return errors.TooManyRequests(fmt.Sprintf("Too many requests, retry in %s", wait.Round(time.Second)))
	}
	return nil
}

// Prepare validates input and builds the optimistic message with a client-side
// timestamp. Nothing is written.
func (uc *MessageUseCase) Prepare(input SendMessageInput) (*entity.Message, error) {
	if input.ChatID == "" || input.SenderID == "" {
		return nil, errors.Validation("chat id and sender id are required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.Validation("message content cannot be empty")
	}
	if err := uc.allow(input.SenderID, ratelimit.ActionSendMessage); err != nil {
		return nil, err
	}

	id := input.MessageID
	if id == "" {
		id = uuid.New().String()
	}

	return &entity.Message{
		ID:          id,
		ChatID:      input.ChatID,
		SenderID:    input.SenderID,
		Content:     content,
		Timestamp:   uc.now().UTC(),
		ReplyTo:     input.ReplyTo,
		Attachments: input.Attachments,
		ReadBy:      []string{input.SenderID},
	}, nil
}

// Deliver writes a prepared message. Delivering the same message twice stores it once.
func (uc *MessageUseCase) Deliver(ctx context.Context, message *entity.Message) error {
	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		logger.Error("Failed to deliver message %s to chat %s: %v", message.ID, message.ChatID, err)
		metrics.IncMessageSent("failed")
		return err
	}
	metrics.IncMessageSent("confirmed")
	return nil
}

// Send validates, writes and returns the optimistic message. On a store failure
// the message is still returned so the caller can offer a retry with it.
func (uc *MessageUseCase) Send(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	message, err := uc.Prepare(input)
	if err != nil {
		return nil, err
	}
	if err := uc.Deliver(ctx, message); err != nil {
		return message, err
	}
	return message, nil
}

// MarkRead clears the caller's unread set. Repeating it is harmless.
func (uc *MessageUseCase) MarkRead(ctx context.Context, chatID, userID string) error {
	if chatID == "" || userID == "" {
		return errors.Validation("chat id and user id are required")
	}
	return uc.chatRepo.MarkRead(ctx, chatID, userID, uc.now().UTC())
}

// ListMessages pages backwards through a chat's history, newest first.
func (uc *MessageUseCase) ListMessages(ctx context.Context, chatID, userID string, limit int, before time.Time) ([]*entity.Message, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat", nil)
	}

	messages, err := uc.chatRepo.ListMessages(ctx, chatID, limit, before)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*entity.Message{}
	}
	return messages, nil
}

func (uc *MessageUseCase) SetTyping(ctx context.Context, chatID, userID string, typing bool) error {
	if chatID == "" || userID == "" {
		return errors.Validation("chat id and user id are required")
	}
	if typing {
		if err := uc.allow(userID, ratelimit.ActionTyping); err != nil {
			return err
		}
		chat, err := uc.chatRepo.GetByID(ctx, chatID)
		if err != nil {
			return err
		}
		if !chat.IsParticipant(userID) {
			return errors.Forbidden("You are not a participant of this chat", nil)
		}
	}
	return uc.chatRepo.SetTyping(ctx, chatID, userID, typing)
}
