package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatterbox/internal/adapter/repository"
	"chatterbox/internal/domain/entity"
	domainrepo "chatterbox/internal/domain/repository"
	"chatterbox/internal/usecase"
)

type fixture struct {
	store *repository.MemoryStore
	users domainrepo.UserRepository
	chats domainrepo.ChatRepository
}

func newFixture(t *testing.T, userIDs ...string) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	f := &fixture{store: store, users: store.Users(), chats: store.Chats()}
	for _, id := range userIDs {
		f.addUser(t, id)
	}
	return f
}

func (f *fixture) addUser(t *testing.T, id string) {
	t.Helper()
	user := entity.NewUser(id, id+"@example.com", id, time.Now().UTC())
	require.NoError(t, f.users.Create(context.Background(), user))
}

func (f *fixture) user(t *testing.T, id string) *entity.User {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func (f *fixture) chat(t *testing.T, id string) *entity.Chat {
	t.Helper()
	chat, err := f.chats.GetByID(context.Background(), id)
	require.NoError(t, err)
	return chat
}

// directChat stores a direct chat listed for both users.
func (f *fixture) directChat(t *testing.T, a, b string, createdAt time.Time) string {
	t.Helper()
	id := entity.DirectChatID(a, b)
	chat := &entity.Chat{
		ID:           id,
		Type:         entity.ChatTypeDirect,
		CreatedAt:    createdAt,
		LastActivity: createdAt,
		Participants: []entity.Participant{
			{UserID: a, Role: entity.RoleMember, JoinedAt: createdAt, UnreadMessages: []string{}},
			{UserID: b, Role: entity.RoleMember, JoinedAt: createdAt, UnreadMessages: []string{}},
		},
	}
	require.NoError(t, f.chats.Create(context.Background(), chat, []string{a, b}))
	return id
}

func (f *fixture) postAt(t *testing.T, chatID, senderID, id, content string, at time.Time) {
	t.Helper()
	require.NoError(t, f.chats.CreateMessage(context.Background(), &entity.Message{
		ID:        id,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: at,
		ReadBy:    []string{senderID},
	}))
}

// nextList reads updates until one satisfies match.
func nextList(t *testing.T, sub *usecase.ChatListSubscription, match func([]entity.ChatSummary) bool) []entity.ChatSummary {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case list, ok := <-sub.Updates():
			require.True(t, ok, "updates closed")
			if match(list) {
				return list
			}
		case <-timeout:
			t.Fatal("timed out waiting for chat list update")
			return nil
		}
	}
}

func assertSorted(t *testing.T, list []entity.ChatSummary) {
	t.Helper()
	for i := 1; i < len(list); i++ {
		require.False(t, list[i].UpdatedAt.After(list[i-1].UpdatedAt),
			"summary %d (%s) is newer than summary %d (%s)", i, list[i].ChatID, i-1, list[i-1].ChatID)
	}
}
