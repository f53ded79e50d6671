package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/internal/infrastructure/metrics"
	"chatterbox/internal/infrastructure/subscription"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

const maxConcurrentChatLoads = 8

// ChatListUseCase derives a user's sorted chat summaries from the store and keeps
// them current through change listeners.
type ChatListUseCase struct {
	userRepo repository.UserRepository
	chatRepo repository.ChatRepository
}

func NewChatListUseCase(userRepo repository.UserRepository, chatRepo repository.ChatRepository) *ChatListUseCase {
	return &ChatListUseCase{
		userRepo: userRepo,
		chatRepo: chatRepo,
	}
}

// Build computes the summary list once. A missing user yields an empty list.
func (uc *ChatListUseCase) Build(ctx context.Context, userID string) ([]entity.ChatSummary, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return []entity.ChatSummary{}, nil
		}
		return nil, err
	}
	return uc.build(ctx, userID, uniqueIDs(user.Chats)), nil
}

func (uc *ChatListUseCase) build(ctx context.Context, userID string, chatIDs []string) []entity.ChatSummary {
	start := time.Now()
	results := make([]*entity.ChatSummary, len(chatIDs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentChatLoads)
	for i, chatID := range chatIDs {
		i, chatID := i, chatID
		g.Go(func() error {
			summary, err := uc.summarize(ctx, userID, chatID)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("Excluding chat %s from list of user %s: %v", chatID, userID, err)
					metrics.IncExcludedChat()
				}
				return nil
			}
			results[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	list := make([]entity.ChatSummary, 0, len(results))
	for _, summary := range results {
		if summary != nil {
			list = append(list, *summary)
		}
	}
	entity.SortSummaries(list)

	metrics.ObserveRebuild(time.Since(start))
	return list
}

func (uc *ChatListUseCase) summarize(ctx context.Context, userID, chatID string) (*entity.ChatSummary, error) {
	var (
		chat *entity.Chat
		last *entity.Message
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := uc.chatRepo.GetByID(gctx, chatID)
		chat = c
		return err
	})
	g.Go(func() error {
		m, err := uc.chatRepo.GetLatestMessage(gctx, chatID)
		last = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &entity.ChatSummary{
		ChatID:            chatID,
		Type:              chat.Type,
		Name:              chat.Name,
		OtherParticipants: []entity.BaseUser{},
		LastMessage:       last,
		UnreadCount:       chat.UnreadCount(userID),
		UpdatedAt:         entity.SummaryUpdatedAt(chat, last),
	}

	// Group chats are shown by name only.
	if chat.Type == entity.ChatTypeDirect {
		for _, otherID := range chat.OtherParticipantIDs(userID) {
			other, err := uc.userRepo.GetByID(ctx, otherID)
			if err != nil {
				logger.Warn("Could not resolve participant %s of chat %s: %v", otherID, chatID, err)
				summary.OtherParticipants = append(summary.OtherParticipants, entity.BaseUser{ID: otherID})
				continue
			}
			summary.OtherParticipants = append(summary.OtherParticipants, other.Base())
		}
	}

	return summary, nil
}

// ChatListSubscription streams freshly built summary lists. Only the latest list
// is buffered; a slow reader skips intermediate states.
type ChatListSubscription struct {
	userID   string
	updates  chan []entity.ChatSummary
	kick     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	userSub  repository.CancelFunc
	chatSubs *subscription.Set

	mu        sync.Mutex
	ready     bool
	closed    bool
	chatIDs   []string
	seen      map[string]*entity.Chat
	current   []entity.ChatSummary
	closeOnce sync.Once
}

func newChatListSubscription(userID string, cancel context.CancelFunc) *ChatListSubscription {
	return &ChatListSubscription{
		userID:   userID,
		updates:  make(chan []entity.ChatSummary, 1),
		kick:     make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
		chatSubs: subscription.NewSet(),
	}
}

func (s *ChatListSubscription) Updates() <-chan []entity.ChatSummary {
	return s.updates
}

// Close detaches every listener, waits for an in-flight rebuild to finish and
// closes the updates channel.
func (s *ChatListSubscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.userSub != nil {
			s.userSub()
		}
		s.chatSubs.CloseAll()
		s.cancel()
		<-s.done

		s.mu.Lock()
		close(s.updates)
		s.mu.Unlock()

		metrics.DecSubscriptions()
	})
}

func (s *ChatListSubscription) trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// publishLocked replaces any unread pending list with list. s.mu must be held.
func (s *ChatListSubscription) publishLocked(list []entity.ChatSummary) {
	if s.closed {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- list:
	default:
	}
}

// Subscribe watches userID's chat-id set, keeps one chat listener and one
// latest-message listener per chat, and emits a rebuilt list after any change.
func (uc *ChatListUseCase) Subscribe(ctx context.Context, userID string) *ChatListSubscription {
	ctx, cancel := context.WithCancel(ctx)
	s := newChatListSubscription(userID, cancel)
	metrics.IncSubscriptions()

	go s.run(ctx, uc)
	s.userSub = uc.userRepo.Watch(ctx, userID, func(user *entity.User, err error) {
		s.onUser(ctx, uc, user, err)
	})
	return s
}

func (s *ChatListSubscription) onUser(ctx context.Context, uc *ChatListUseCase, user *entity.User, err error) {
	var ids []string
	switch {
	case err != nil:
		logger.Error("Chat list listener for user %s failed: %v", s.userID, err)
	case user != nil:
		ids = uniqueIDs(user.Chats)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.ready || !equalIDs(s.chatIDs, ids) {
		s.chatSubs.CloseAll()
		s.chatIDs = ids
		s.seen = make(map[string]*entity.Chat, len(ids))
		for _, chatID := range ids {
			chatID := chatID
			s.chatSubs.Add(uc.chatRepo.Watch(ctx, chatID, func(chat *entity.Chat, err error) {
				if err != nil {
					logger.Warn("Chat listener %s failed: %v", chatID, err)
				}
				if s.typingOnly(chatID, chat, err) {
					return
				}
				s.trigger()
			}))
			s.chatSubs.Add(uc.chatRepo.WatchLatestMessage(ctx, chatID, func(_ *entity.Message, err error) {
				if err != nil {
					logger.Warn("Latest message listener %s failed: %v", chatID, err)
				}
				s.trigger()
			}))
		}
	}
	s.ready = true
	s.mu.Unlock()

	s.trigger()
}

// typingOnly records chat as the latest snapshot of chatID and reports whether
// it changed nothing but typing state since the previous one.
func (s *ChatListSubscription) typingOnly(chatID string, chat *entity.Chat, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen == nil {
		return false
	}
	if err != nil || chat == nil {
		delete(s.seen, chatID)
		return false
	}
	previous := s.seen[chatID]
	s.seen[chatID] = chat
	return chat.OnlyTypingDiffers(previous)
}

func (s *ChatListSubscription) run(ctx context.Context, uc *ChatListUseCase) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
		}

		s.mu.Lock()
		ready := s.ready
		ids := append([]string(nil), s.chatIDs...)
		s.mu.Unlock()
		if !ready {
			continue
		}

		list := uc.build(ctx, s.userID, ids)
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.publishLocked(list)
		s.mu.Unlock()
	}
}

// SubscribeLastMessages is the light variant: it only follows the latest message
// of each chat in initial and patches lastMessage and updatedAt in place.
func (uc *ChatListUseCase) SubscribeLastMessages(ctx context.Context, userID string, initial []entity.ChatSummary) *ChatListSubscription {
	ctx, cancel := context.WithCancel(ctx)
	s := newChatListSubscription(userID, cancel)
	close(s.done)
	metrics.IncSubscriptions()

	s.mu.Lock()
	s.current = append([]entity.ChatSummary{}, initial...)
	entity.SortSummaries(s.current)
	s.publishLocked(append([]entity.ChatSummary{}, s.current...))
	s.mu.Unlock()

	for _, summary := range initial {
		chatID := summary.ChatID
		s.chatSubs.Add(uc.chatRepo.WatchLatestMessage(ctx, chatID, func(message *entity.Message, err error) {
			if err != nil {
				logger.Warn("Latest message listener %s failed: %v", chatID, err)
				return
			}
			s.patchLastMessage(chatID, message)
		}))
	}
	return s
}

func (s *ChatListSubscription) patchLastMessage(chatID string, message *entity.Message) {
	if message == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.current {
		if s.current[i].ChatID != chatID {
			continue
		}
		if last := s.current[i].LastMessage; last != nil && last.ID == message.ID {
			return
		}
		s.current[i].LastMessage = message
		s.current[i].UpdatedAt = message.Timestamp
		changed = true
	}
	if !changed {
		return
	}

	entity.SortSummaries(s.current)
	s.publishLocked(append([]entity.ChatSummary{}, s.current...))
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
