package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	rateLimiter *ratelimit.RateLimiter
	now         func() time.Time
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	rateLimiter *ratelimit.RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

type CreateChatInput struct {
	Type           entity.ChatType
	ParticipantIDs []string
	Name           string
}

type CreateChatResult struct {
	ChatID string       `json:"chatId"`
	Chat   *entity.Chat `json:"chat"`
	// Created is false when an existing direct chat was returned.
	Created bool `json:"created"`
}

// CreateChat creates a direct or group chat. A direct chat for a pair that already
// has one returns the existing chat. Users in a blocking relation with another
// participant do not get the chat added to their list.
func (uc *ChatUseCase) CreateChat(ctx context.Context, creatorID string, input CreateChatInput) (*CreateChatResult, error) {
	if creatorID == "" {
		return nil, errors.Validation("creator id is required")
	}

	participants := dedupeParticipants(creatorID, input.ParticipantIDs)
	name := strings.TrimSpace(input.Name)

	var chatID string
	switch input.Type {
	case entity.ChatTypeDirect:
		if len(participants) != 2 {
			return nil, errors.Validation("A direct chat needs exactly 2 participants")
		}
		chatID = entity.DirectChatID(participants[0], participants[1])
		name = ""
	case entity.ChatTypeGroup:
		if name == "" {
			return nil, errors.Validation("A group chat needs a name")
		}
		if len(participants) < 2 {
			return nil, errors.Validation("A group chat needs at least 2 participants")
		}
		chatID = uuid.New().String()
	default:
		return nil, errors.Validation(fmt.Sprintf("Unknown chat type %q", input.Type))
	}

	if input.Type == entity.ChatTypeDirect {
		existing, err := uc.chatRepo.GetByID(ctx, chatID)
		if err == nil {
			if err := uc.relistDirect(ctx, existing, creatorID, participants); err != nil {
				return nil, err
			}
			return &CreateChatResult{ChatID: existing.ID, Chat: existing}, nil
		}
		if !errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
	}

	if uc.rateLimiter != nil {
		if ok, wait := uc.rateLimiter.Allow(creatorID, ratelimit.ActionCreateChat); !ok {
			return nil, errors.TooManyRequests(fmt.Sprintf("Too many chats created, retry in %s", wait.Round(time.Second)))
		}
	}

	users, err := uc.loadUsers(ctx, participants)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	chat := &entity.Chat{
		ID:           chatID,
		Type:         input.Type,
		Name:         name,
		CreatedAt:    now,
		LastActivity: now,
	}
	for _, userID := range participants {
		role := entity.RoleMember
		if input.Type == entity.ChatTypeGroup && userID == creatorID {
			role = entity.RoleAdmin
		}
		chat.Participants = append(chat.Participants, entity.Participant{
			UserID:         userID,
			Role:           role,
			JoinedAt:       now,
			UnreadMessages: []string{},
		})
	}

	visibleTo := visibleParticipants(users)
	if err := uc.chatRepo.Create(ctx, chat, visibleTo); err != nil {
		if input.Type == entity.ChatTypeDirect && errors.Is(err, errors.CodeConflict) {
			// Lost a concurrent create of the same pair.
			existing, getErr := uc.chatRepo.GetByID(ctx, chatID)
			if getErr != nil {
				return nil, getErr
			}
			return &CreateChatResult{ChatID: existing.ID, Chat: existing}, nil
		}
		return nil, err
	}

	if len(visibleTo) < len(participants) {
		logger.Info("Chat %s created without listing it for %d blocking participant(s)", chatID, len(participants)-len(visibleTo))
	}

	return &CreateChatResult{ChatID: chat.ID, Chat: chat, Created: true}, nil
}

// relistDirect puts an existing direct chat back into the creator's list, e.g.
// after a block was lifted. Nothing changes while either side blocks the other.
func (uc *ChatUseCase) relistDirect(ctx context.Context, chat *entity.Chat, creatorID string, participants []string) error {
	users, err := uc.loadUsers(ctx, participants)
	if err != nil {
		logger.Warn("Could not check listing of chat %s for %s: %v", chat.ID, creatorID, err)
		return nil
	}
	for _, visible := range visibleParticipants(users) {
		if visible != creatorID {
			continue
		}
		for _, u := range users {
			if u.ID == creatorID && !u.HasChat(chat.ID) {
				logger.Info("Relisting direct chat %s for %s", chat.ID, creatorID)
				return uc.userRepo.AddChat(ctx, creatorID, chat.ID)
			}
		}
	}
	return nil
}

// GetChat returns the chat if userID participates in it.
func (uc *ChatUseCase) GetChat(ctx context.Context, chatID, userID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat", nil)
	}
	return chat, nil
}

func (uc *ChatUseCase) loadUsers(ctx context.Context, ids []string) ([]*entity.User, error) {
	users := make([]*entity.User, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			u, err := uc.userRepo.GetByID(gctx, id)
			if err != nil {
				return err
			}
			users[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return users, nil
}

// dedupeParticipants puts the creator first and drops empty and repeated ids.
func dedupeParticipants(creatorID string, ids []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	out := []string{creatorID}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// visibleParticipants leaves out every user that blocked, or was blocked by,
// another participant.
func visibleParticipants(users []*entity.User) []string {
	visible := make([]string, 0, len(users))
	for _, u := range users {
		blocking := false
		for _, other := range users {
			if other.ID == u.ID {
				continue
			}
			if u.HasBlocked(other.ID) || other.HasBlocked(u.ID) {
				blocking = true
				break
			}
		}
		if !blocking {
			visible = append(visible, u.ID)
		}
	}
	return visible
}
