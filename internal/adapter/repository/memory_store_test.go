package repository

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
)

func seedChat(t *testing.T, s *MemoryStore, id string, users ...string) {
	t.Helper()
	now := time.Now().UTC()
	chat := &entity.Chat{ID: id, Type: entity.ChatTypeGroup, Name: id, CreatedAt: now, LastActivity: now}
	for _, u := range users {
		require.NoError(t, s.Users().Create(context.Background(), entity.NewUser(u, u+"@example.com", u, now)))
		chat.Participants = append(chat.Participants, entity.Participant{UserID: u, Role: entity.RoleMember, JoinedAt: now, UnreadMessages: []string{}})
	}
	require.NoError(t, s.Chats().Create(context.Background(), chat, users))
}

func TestMemoryStore_WatchDeliversInitialAndChanges(t *testing.T) {
	s := NewMemoryStore()
	seedChat(t, s, "c1", "alice", "bob")

	var calls int32
	var lastUnread atomic.Value
	cancel := s.Chats().Watch(context.Background(), "c1", func(chat *entity.Chat, err error) {
		assert.NoError(t, err)
		atomic.AddInt32(&calls, 1)
		lastUnread.Store(chat.UnreadCount("bob"))
	})
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.ActiveWatchers())

	require.NoError(t, s.Chats().CreateMessage(context.Background(), &entity.Message{
		ID: "m1", ChatID: "c1", SenderID: "alice", Content: "hi", Timestamp: time.Now().UTC(),
	}))
	assert.Eventually(t, func() bool {
		v, _ := lastUnread.Load().(int)
		return v == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	cancel()
	assert.Equal(t, 0, s.ActiveWatchers())

	before := atomic.LoadInt32(&calls)
	require.NoError(t, s.Chats().MarkRead(context.Background(), "c1", "bob", time.Now().UTC()))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestMemoryStore_WatchMissingUserReportsNil(t *testing.T) {
	s := NewMemoryStore()

	got := make(chan *entity.User, 1)
	cancel := s.Users().Watch(context.Background(), "ghost", func(u *entity.User, err error) {
		assert.NoError(t, err)
		got <- u
	})
	defer cancel()

	select {
	case u := <-got:
		assert.Nil(t, u)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}
}

func TestMemoryStore_CreateMessageSemantics(t *testing.T) {
	s := NewMemoryStore()
	seedChat(t, s, "c1", "alice", "bob", "carol")
	chats := s.Chats()
	msg := &entity.Message{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "hi", Timestamp: time.Now().UTC()}

	require.NoError(t, chats.CreateMessage(context.Background(), msg))
	require.NoError(t, chats.CreateMessage(context.Background(), msg))

	chat, err := chats.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, chat.UnreadCount("alice"))
	assert.Equal(t, 1, chat.UnreadCount("bob"))
	assert.Equal(t, 1, chat.UnreadCount("carol"))
	assert.True(t, chat.LastActivity.Equal(msg.Timestamp))

	latest, err := chats.GetLatestMessage(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "m1", latest.ID)

	outsider := &entity.Message{ID: "m2", ChatID: "c1", SenderID: "mallory", Content: "hi", Timestamp: time.Now().UTC()}
	assert.True(t, errors.Is(chats.CreateMessage(context.Background(), outsider), errors.CodeForbidden))

	missing := &entity.Message{ID: "m3", ChatID: "nope", SenderID: "alice", Content: "hi", Timestamp: time.Now().UTC()}
	assert.True(t, errors.Is(chats.CreateMessage(context.Background(), missing), errors.CodeNotFound))
}

func TestMemoryStore_CreateMessageRejectsReusedID(t *testing.T) {
	s := NewMemoryStore()
	seedChat(t, s, "c1", "alice", "bob")
	chats := s.Chats()

	first := &entity.Message{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "hi", Timestamp: time.Now().UTC()}
	require.NoError(t, chats.CreateMessage(context.Background(), first))

	other := &entity.Message{ID: "m1", ChatID: "c1", SenderID: "bob", Content: "different", Timestamp: time.Now().UTC()}
	assert.True(t, errors.Is(chats.CreateMessage(context.Background(), other), errors.CodeConflict))

	edited := &entity.Message{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "changed", Timestamp: time.Now().UTC()}
	assert.True(t, errors.Is(chats.CreateMessage(context.Background(), edited), errors.CodeConflict))

	history, err := chats.ListMessages(context.Background(), "c1", 10, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "alice", history[0].SenderID)
}

func TestMemoryStore_CreateConflicts(t *testing.T) {
	s := NewMemoryStore()
	seedChat(t, s, "c1", "alice")

	err := s.Users().Create(context.Background(), entity.NewUser("alice", "a@example.com", "", time.Now()))
	assert.True(t, errors.Is(err, errors.CodeConflict))

	err = s.Chats().Create(context.Background(), &entity.Chat{ID: "c1"}, nil)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	err = s.Chats().Create(context.Background(), &entity.Chat{ID: "c2"}, []string{"ghost"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	seedChat(t, s, "c1", "alice")

	user, err := s.Users().GetByID(context.Background(), "alice")
	require.NoError(t, err)
	user.Chats = append(user.Chats, "tampered")

	again, err := s.Users().GetByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, again.Chats)
}

func TestMemoryStore_Faults(t *testing.T) {
	s := NewMemoryStore()
	seedChat(t, s, "c1", "alice")
	boom := errors.Store("Failed to load chat", nil)

	s.SetFault("chat:c1", boom)
	_, err := s.Chats().GetByID(context.Background(), "c1")
	assert.Equal(t, boom, err)

	s.SetFault("chat:c1", nil)
	_, err = s.Chats().GetByID(context.Background(), "c1")
	assert.NoError(t, err)
}

func TestMemoryStore_SearchByUsernamePrefix(t *testing.T) {
	s := NewMemoryStore()
	for _, name := range []string{"charlie", "chad", "bob", "chloe"} {
		require.NoError(t, s.Users().Create(context.Background(), entity.NewUser(name, name+"@example.com", name, time.Now())))
	}

	users, err := s.Users().SearchByUsernamePrefix(context.Background(), "ch", 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "chad", users[0].Username)
	assert.Equal(t, "charlie", users[1].Username)
}
