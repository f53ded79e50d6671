package repository

import (
	"context"
	"time"

	"chatterbox/internal/domain/entity"
)

type ChatRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// Create writes the chat document and adds its id to every user in
	// visibleTo in one atomic write. It fails with CONFLICT if the id is taken.
	Create(ctx context.Context, chat *entity.Chat, visibleTo []string) error

	// CreateMessage atomically stores message, appends its id to the unread set of
	// every participant except the sender and stamps lastActivity. Re-sending a
	// message id that already exists is a no-op.
	CreateMessage(ctx context.Context, message *entity.Message) error
	// GetLatestMessage returns nil, nil for a chat without messages.
	GetLatestMessage(ctx context.Context, chatID string) (*entity.Message, error)
	// ListMessages returns up to limit messages older than before (zero = now), newest first.
	ListMessages(ctx context.Context, chatID string, limit int, before time.Time) ([]*entity.Message, error)

	// MarkRead clears userID's unread set and stamps its lastReadTimestamp
	// without touching other participants' records.
	MarkRead(ctx context.Context, chatID, userID string, at time.Time) error
	SetTyping(ctx context.Context, chatID, userID string, typing bool) error

	Watch(ctx context.Context, chatID string, onChange ChangeFunc[*entity.Chat]) CancelFunc
	WatchLatestMessage(ctx context.Context, chatID string, onChange ChangeFunc[*entity.Message]) CancelFunc
}
