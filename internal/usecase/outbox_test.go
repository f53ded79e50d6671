package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
)

type outboxRecorder struct {
	mu     sync.Mutex
	events []usecase.OutboxEntry
}

func (r *outboxRecorder) notify(entry usecase.OutboxEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, entry)
}

func (r *outboxRecorder) states() []usecase.OutboxState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]usecase.OutboxState, len(r.events))
	for i, e := range r.events {
		out[i] = e.State
	}
	return out
}

func TestOutbox_SubmitConfirms(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	chatID := newGroup(t, f, "alice", "bob")
	rec := &outboxRecorder{}
	outbox := usecase.NewOutbox(context.Background(), usecase.NewMessageUseCase(f.chats, nil), rec.notify)

	message, err := outbox.Submit("tmp-1", usecase.SendMessageInput{ChatID: chatID, SenderID: "alice", Content: "hi"})
	require.NoError(t, err)
	outbox.Wait()

	assert.Equal(t, []usecase.OutboxState{usecase.OutboxPending, usecase.OutboxConfirmed}, rec.states())
	_, tracked := outbox.Get("tmp-1")
	assert.False(t, tracked)

	history, err := f.chats.ListMessages(context.Background(), chatID, 10, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, message.ID, history[0].ID)
}

func TestOutbox_FailedSendIsRetriedWithSameMessage(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	chatID := newGroup(t, f, "alice", "bob")
	rec := &outboxRecorder{}
	outbox := usecase.NewOutbox(context.Background(), usecase.NewMessageUseCase(f.chats, nil), rec.notify)

	f.store.SetFault("send", errors.Store("Failed to send message", nil))
	message, err := outbox.Submit("tmp-1", usecase.SendMessageInput{ChatID: chatID, SenderID: "alice", Content: "keep me"})
	require.NoError(t, err)
	outbox.Wait()

	assert.Equal(t, []usecase.OutboxState{usecase.OutboxPending, usecase.OutboxFailed}, rec.states())
	failed := outbox.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "keep me", failed[0].Message.Content)
	assert.True(t, errors.Is(failed[0].Err, errors.CodeStore))

	// A failed temp id cannot be reused for a new send.
	_, err = outbox.Submit("tmp-1", usecase.SendMessageInput{ChatID: chatID, SenderID: "alice", Content: "other"})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	f.store.SetFault("send", nil)
	retried, err := outbox.Retry("tmp-1")
	require.NoError(t, err)
	assert.Equal(t, message.ID, retried.ID)
	outbox.Wait()

	assert.Equal(t, []usecase.OutboxState{
		usecase.OutboxPending, usecase.OutboxFailed, usecase.OutboxPending, usecase.OutboxConfirmed,
	}, rec.states())
	assert.Empty(t, outbox.Failed())

	history, err := f.chats.ListMessages(context.Background(), chatID, 10, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, message.ID, history[0].ID)
	assert.Equal(t, 1, f.chat(t, chatID).UnreadCount("bob"))
}

func TestOutbox_SubmitValidation(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	chatID := newGroup(t, f, "alice", "bob")
	rec := &outboxRecorder{}
	outbox := usecase.NewOutbox(context.Background(), usecase.NewMessageUseCase(f.chats, nil), rec.notify)

	_, err := outbox.Submit("tmp-1", usecase.SendMessageInput{ChatID: chatID, SenderID: "alice", Content: "  "})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = outbox.Submit("", usecase.SendMessageInput{ChatID: chatID, SenderID: "alice", Content: "hi"})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	assert.Empty(t, rec.states())
	_, tracked := outbox.Get("tmp-1")
	assert.False(t, tracked)
}

func TestOutbox_RetryRequiresFailedEntry(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	outbox := usecase.NewOutbox(context.Background(), usecase.NewMessageUseCase(f.chats, nil), nil)

	_, err := outbox.Retry("missing")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
