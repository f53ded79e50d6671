package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
)

func TestChatListUseCase_BuildSortsByLatestActivity(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol", "dave")
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	quiet := f.directChat(t, "alice", "bob", t0)
	busy := f.directChat(t, "alice", "carol", t0.Add(-time.Hour))
	fresh := f.directChat(t, "alice", "dave", t0.Add(30*time.Second))
	f.postAt(t, busy, "carol", "m1", "old", t0.Add(-30*time.Minute))
	f.postAt(t, busy, "carol", "m2", "new", t0.Add(time.Minute))

	list, err := usecase.NewChatListUseCase(f.users, f.chats).Build(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assertSorted(t, list)

	assert.Equal(t, []string{busy, fresh, quiet}, []string{list[0].ChatID, list[1].ChatID, list[2].ChatID})
	assert.True(t, list[0].UpdatedAt.Equal(t0.Add(time.Minute)))
	assert.Equal(t, "new", list[0].LastMessage.Content)
	assert.Equal(t, 2, list[0].UnreadCount)
	assert.True(t, list[2].UpdatedAt.Equal(t0))
	assert.Nil(t, list[2].LastMessage)
	assert.Equal(t, "bob", list[2].OtherParticipants[0].ID)
}

func TestChatListUseCase_HelloScenario(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	chats := usecase.NewChatUseCase(f.chats, f.users, nil)
	messages := usecase.NewMessageUseCase(f.chats, nil)
	lists := usecase.NewChatListUseCase(f.users, f.chats)

	created, err := chats.CreateChat(context.Background(), "alice", direct("bob"))
	require.NoError(t, err)
	require.True(t, created.Created)

	_, err = messages.Send(context.Background(), usecase.SendMessageInput{ChatID: created.ChatID, SenderID: "alice", Content: "hello"})
	require.NoError(t, err)

	list, err := lists.Build(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ChatID, list[0].ChatID)
	assert.Equal(t, 1, list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "hello", list[0].LastMessage.Content)
	require.Len(t, list[0].OtherParticipants, 1)
	assert.Equal(t, "alice", list[0].OtherParticipants[0].DisplayName)

	mine, err := lists.Build(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 0, mine[0].UnreadCount)
}

func TestChatListUseCase_BuildForMissingUserIsEmpty(t *testing.T) {
	f := newFixture(t)

	list, err := usecase.NewChatListUseCase(f.users, f.chats).Build(context.Background(), "ghost")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestChatListUseCase_FailingChatIsExcluded(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	now := time.Now().UTC()
	ok := f.directChat(t, "alice", "bob", now)
	broken := f.directChat(t, "alice", "carol", now)
	f.store.SetFault("chat:"+broken, errors.Store("Failed to load chat", nil))

	list, err := usecase.NewChatListUseCase(f.users, f.chats).Build(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ok, list[0].ChatID)
}

func TestChatListUseCase_UnresolvableParticipantFallsBackToID(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	chatID := f.directChat(t, "alice", "bob", time.Now().UTC())
	f.store.SetFault("user:bob", errors.Store("Failed to load user", nil))

	list, err := usecase.NewChatListUseCase(f.users, f.chats).Build(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, chatID, list[0].ChatID)
	assert.Equal(t, []entity.BaseUser{{ID: "bob"}}, list[0].OtherParticipants)
}

func TestChatListUseCase_SubscribeFollowsChanges(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	chats := usecase.NewChatUseCase(f.chats, f.users, nil)
	messages := usecase.NewMessageUseCase(f.chats, nil)
	friends := usecase.NewFriendUseCase(f.users)

	sub := usecase.NewChatListUseCase(f.users, f.chats).Subscribe(context.Background(), "bob")

	nextList(t, sub, func(list []entity.ChatSummary) bool { return len(list) == 0 })

	created, err := chats.CreateChat(context.Background(), "alice", direct("bob"))
	require.NoError(t, err)
	_, err = messages.Send(context.Background(), usecase.SendMessageInput{ChatID: created.ChatID, SenderID: "alice", Content: "hello"})
	require.NoError(t, err)

	list := nextList(t, sub, func(list []entity.ChatSummary) bool {
		return len(list) == 1 && list[0].LastMessage != nil && list[0].UnreadCount == 1
	})
	assert.Equal(t, "hello", list[0].LastMessage.Content)

	// One user listener plus a chat and a latest-message listener per chat.
	assert.Eventually(t, func() bool { return f.store.ActiveWatchers() == 3 }, time.Second, 10*time.Millisecond)

	require.NoError(t, messages.MarkRead(context.Background(), created.ChatID, "bob"))
	nextList(t, sub, func(list []entity.ChatSummary) bool { return len(list) == 1 && list[0].UnreadCount == 0 })

	// Leaving the chat detaches its listeners.
	require.NoError(t, friends.Block(context.Background(), "bob", "alice"))
	nextList(t, sub, func(list []entity.ChatSummary) bool { return len(list) == 0 })
	assert.Eventually(t, func() bool { return f.store.ActiveWatchers() == 1 }, time.Second, 10*time.Millisecond)

	sub.Close()
	assert.Equal(t, 0, f.store.ActiveWatchers())
	for range sub.Updates() {
	}
}

func TestChatListUseCase_SubscribeEmitsSortedLists(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	t0 := time.Now().UTC().Add(-time.Hour)
	first := f.directChat(t, "alice", "bob", t0)
	second := f.directChat(t, "alice", "carol", t0.Add(time.Minute))

	sub := usecase.NewChatListUseCase(f.users, f.chats).Subscribe(context.Background(), "alice")
	defer sub.Close()

	list := nextList(t, sub, func(list []entity.ChatSummary) bool { return len(list) == 2 })
	assertSorted(t, list)
	assert.Equal(t, second, list[0].ChatID)

	f.postAt(t, first, "bob", "m1", "bump", t0.Add(2*time.Minute))
	list = nextList(t, sub, func(list []entity.ChatSummary) bool {
		return len(list) == 2 && list[0].ChatID == first
	})
	assertSorted(t, list)
}

func TestChatListUseCase_CloseIsIdempotent(t *testing.T) {
	f := newFixture(t, "alice")
	sub := usecase.NewChatListUseCase(f.users, f.chats).Subscribe(context.Background(), "alice")

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, f.store.ActiveWatchers())
}

func TestChatListUseCase_SubscribeLastMessagesPatchesInPlace(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	t0 := time.Now().UTC().Add(-time.Hour)
	withBob := f.directChat(t, "alice", "bob", t0)
	withCarol := f.directChat(t, "alice", "carol", t0.Add(time.Minute))
	lists := usecase.NewChatListUseCase(f.users, f.chats)

	initial, err := lists.Build(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, withCarol, initial[0].ChatID)

	sub := lists.SubscribeLastMessages(context.Background(), "alice", initial)
	nextList(t, sub, func(list []entity.ChatSummary) bool { return len(list) == 2 })
	assert.Equal(t, 2, f.store.ActiveWatchers())

	at := t0.Add(2 * time.Minute)
	f.postAt(t, withBob, "bob", "m1", "second", at)

	list := nextList(t, sub, func(list []entity.ChatSummary) bool {
		return list[0].ChatID == withBob && list[0].LastMessage != nil
	})
	assert.Equal(t, "second", list[0].LastMessage.Content)
	assert.True(t, list[0].UpdatedAt.Equal(at))
	// Only lastMessage and updatedAt are patched.
	assert.Equal(t, 0, list[0].UnreadCount)

	sub.Close()
	assert.Equal(t, 0, f.store.ActiveWatchers())
}

// quiet drains updates until none arrive for the given window.
func quiet(sub *usecase.ChatListSubscription, window time.Duration) {
	for {
		select {
		case <-sub.Updates():
		case <-time.After(window):
			return
		}
	}
}

func TestChatListUseCase_TypingDoesNotRebuild(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	chatID := f.directChat(t, "alice", "bob", time.Now().UTC())
	sub := usecase.NewChatListUseCase(f.users, f.chats).Subscribe(context.Background(), "alice")
	defer sub.Close()

	nextList(t, sub, func(list []entity.ChatSummary) bool { return len(list) == 1 })
	quiet(sub, 100*time.Millisecond)

	require.NoError(t, f.chats.SetTyping(context.Background(), chatID, "bob", true))
	select {
	case list := <-sub.Updates():
		t.Fatalf("typing caused a rebuild: %+v", list)
	case <-time.After(150 * time.Millisecond):
	}

	f.postAt(t, chatID, "bob", "m1", "hey", time.Now().UTC())
	list := nextList(t, sub, func(list []entity.ChatSummary) bool {
		return len(list) == 1 && list[0].LastMessage != nil
	})
	assert.Equal(t, "hey", list[0].LastMessage.Content)
	assert.Equal(t, 1, list[0].UnreadCount)
}
