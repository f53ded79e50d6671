package repository

import (
	"context"

	"chatterbox/internal/domain/entity"
)

type ProfileUpdate struct {
	DisplayName *string
	Username    *string
	Status      *entity.UserStatus
}

type UserRepository interface {
	// Create stores a new user document; it fails with CONFLICT if one exists.
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	// SearchByUsernamePrefix matches the lower-cased username index.
	SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]*entity.User, error)
	// AddFriendPair appends each id to the other's friend list in one atomic write.
	AddFriendPair(ctx context.Context, userID, friendID string) error
	SetBlocked(ctx context.Context, userID, targetID string, blocked bool) error
	// AddChat lists chatID for userID. Adding a listed chat is a no-op.
	AddChat(ctx context.Context, userID, chatID string) error
	RemoveChat(ctx context.Context, userID, chatID string) error
	Watch(ctx context.Context, userID string, onChange ChangeFunc[*entity.User]) CancelFunc
}
