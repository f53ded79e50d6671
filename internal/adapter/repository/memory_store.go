package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
)

// MemoryStore is a process-local document store with the same semantics the
// Firestore adapters rely on: atomic multi-document writes and change listeners
// that always deliver the latest state. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*entity.User
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message
	faults   map[string]error

	watchMu  sync.Mutex
	watchers map[string]map[*memoryWatcher]struct{}
}

type memoryWatcher struct {
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*entity.User),
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
		faults:   make(map[string]error),
		watchers: make(map[string]map[*memoryWatcher]struct{}),
	}
}

func (s *MemoryStore) Users() repository.UserRepository {
	return &memoryUserRepository{store: s}
}

func (s *MemoryStore) Chats() repository.ChatRepository {
	return &memoryChatRepository{store: s}
}

// SetFault makes operations matching key fail with err until cleared with a nil err.
// Keys: "chat:<id>" for chat reads, "send" for CreateMessage, "user:<id>" for user reads.
func (s *MemoryStore) SetFault(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, key)
		return
	}
	s.faults[key] = err
}

// ActiveWatchers reports the number of attached listeners.
func (s *MemoryStore) ActiveWatchers() int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	n := 0
	for _, set := range s.watchers {
		n += len(set)
	}
	return n
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) fault(key string) error {
	return s.faults[key]
}

func userKey(id string) string   { return "users/" + id }
func chatKey(id string) string   { return "chats/" + id }
func latestKey(id string) string { return "latest/" + id }

func (s *MemoryStore) watch(key string, deliver func()) repository.CancelFunc {
	w := &memoryWatcher{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	s.watchMu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[*memoryWatcher]struct{})
	}
	s.watchers[key][w] = struct{}{}
	s.watchMu.Unlock()

	w.notify <- struct{}{}
	go func() {
		for {
			select {
			case <-w.done:
				return
			case <-w.notify:
				select {
				case <-w.done:
					return
				default:
				}
				deliver()
			}
		}
	}()

	return func() {
		w.once.Do(func() {
			close(w.done)
			s.watchMu.Lock()
			delete(s.watchers[key], w)
			if len(s.watchers[key]) == 0 {
				delete(s.watchers, key)
			}
			s.watchMu.Unlock()
		})
	}
}

func (s *MemoryStore) publish(keys ...string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, key := range keys {
		for w := range s.watchers[key] {
			select {
			case w.notify <- struct{}{}:
			default:
			}
		}
	}
}

func cloneUser(u *entity.User) *entity.User {
	cp := *u
	cp.Chats = append([]string{}, u.Chats...)
	cp.Blocked = append([]string{}, u.Blocked...)
	cp.Friends.List = append([]string{}, u.Friends.List...)
	cp.Friends.Pending = append([]string{}, u.Friends.Pending...)
	return &cp
}

func cloneChat(c *entity.Chat) *entity.Chat {
	cp := *c
	cp.Participants = make([]entity.Participant, len(c.Participants))
	for i, p := range c.Participants {
		p.UnreadMessages = append([]string{}, p.UnreadMessages...)
		if p.LastReadTimestamp != nil {
			t := *p.LastReadTimestamp
			p.LastReadTimestamp = &t
		}
		cp.Participants[i] = p
	}
	if c.Typing != nil {
		cp.Typing = make(map[string]bool, len(c.Typing))
		for k, v := range c.Typing {
			cp.Typing[k] = v
		}
	}
	return &cp
}

func cloneMessage(m *entity.Message) *entity.Message {
	cp := *m
	cp.Attachments = append([]string(nil), m.Attachments...)
	cp.ReadBy = append([]string{}, m.ReadBy...)
	return &cp
}

func addUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func removeValue(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) Create(ctx context.Context, user *entity.User) error {
	s := r.store
	s.mu.Lock()
	if _, ok := s.users[user.ID]; ok {
		s.mu.Unlock()
		return errors.Conflict("User already exists")
	}
	s.users[user.ID] = cloneUser(user)
	s.mu.Unlock()

	s.publish(userKey(user.ID))
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("user:" + id); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return cloneUser(u), nil
}

func (r *memoryUserRepository) UpdateProfile(ctx context.Context, id string, update repository.ProfileUpdate) error {
	s := r.store
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("User", nil)
	}
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Status != nil {
		u.Status = *update.Status
	}
	s.mu.Unlock()

	s.publish(userKey(id))
	return nil
}

func (r *memoryUserRepository) SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]*entity.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.User
	for _, u := range s.users {
		if strings.HasPrefix(u.Username, prefix) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryUserRepository) AddFriendPair(ctx context.Context, userID, friendID string) error {
	s := r.store
	s.mu.Lock()
	a, okA := s.users[userID]
	b, okB := s.users[friendID]
	if !okA || !okB {
		s.mu.Unlock()
		return errors.NotFound("User", nil)
	}
	a.Friends.List = addUnique(a.Friends.List, friendID)
	b.Friends.List = addUnique(b.Friends.List, userID)
	s.mu.Unlock()

	s.publish(userKey(userID), userKey(friendID))
	return nil
}

func (r *memoryUserRepository) SetBlocked(ctx context.Context, userID, targetID string, blocked bool) error {
	s := r.store
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("User", nil)
	}
	if blocked {
		u.Blocked = addUnique(u.Blocked, targetID)
	} else {
		u.Blocked = removeValue(u.Blocked, targetID)
	}
	s.mu.Unlock()

	s.publish(userKey(userID))
	return nil
}

func (r *memoryUserRepository) AddChat(ctx context.Context, userID, chatID string) error {
	s := r.store
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("User", nil)
	}
	u.Chats = addUnique(u.Chats, chatID)
	s.mu.Unlock()

	s.publish(userKey(userID))
	return nil
}

func (r *memoryUserRepository) RemoveChat(ctx context.Context, userID, chatID string) error {
	s := r.store
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("User", nil)
	}
	u.Chats = removeValue(u.Chats, chatID)
	s.mu.Unlock()

	s.publish(userKey(userID))
	return nil
}

func (r *memoryUserRepository) Watch(ctx context.Context, userID string, onChange repository.ChangeFunc[*entity.User]) repository.CancelFunc {
	s := r.store
	return s.watch(userKey(userID), func() {
		s.mu.RLock()
		if err := s.fault("user:" + userID); err != nil {
			s.mu.RUnlock()
			onChange(nil, err)
			return
		}
		u, ok := s.users[userID]
		var cp *entity.User
		if ok {
			cp = cloneUser(u)
		}
		s.mu.RUnlock()
		onChange(cp, nil)
	})
}

type memoryChatRepository struct {
	store *MemoryStore
}

func (r *memoryChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("chat:" + id); err != nil {
		return nil, err
	}
	c, ok := s.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return cloneChat(c), nil
}

func (r *memoryChatRepository) Create(ctx context.Context, chat *entity.Chat, visibleTo []string) error {
	s := r.store
	s.mu.Lock()
	if _, ok := s.chats[chat.ID]; ok {
		s.mu.Unlock()
		return errors.Conflict("Chat already exists")
	}
	for _, userID := range visibleTo {
		if _, ok := s.users[userID]; !ok {
			s.mu.Unlock()
			return errors.NotFound("User", nil)
		}
	}
	s.chats[chat.ID] = cloneChat(chat)
	keys := []string{chatKey(chat.ID)}
	for _, userID := range visibleTo {
		u := s.users[userID]
		u.Chats = addUnique(u.Chats, chat.ID)
		keys = append(keys, userKey(userID))
	}
	s.mu.Unlock()

	s.publish(keys...)
	return nil
}

func (r *memoryChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	s := r.store
	s.mu.Lock()
	if err := s.fault("send"); err != nil {
		s.mu.Unlock()
		return err
	}
	c, ok := s.chats[message.ChatID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Chat", nil)
	}
	if !c.IsParticipant(message.SenderID) {
		s.mu.Unlock()
		return errors.Forbidden("You are not a participant of this chat", nil)
	}
	for _, m := range s.messages[message.ChatID] {
		if m.ID != message.ID {
			continue
		}
		s.mu.Unlock()
		if !message.IsRedeliveryOf(m) {
			return errors.Conflict("Message id is already in use")
		}
		return nil
	}

	s.messages[message.ChatID] = append(s.messages[message.ChatID], cloneMessage(message))
	for i := range c.Participants {
		if c.Participants[i].UserID != message.SenderID {
			c.Participants[i].UnreadMessages = addUnique(c.Participants[i].UnreadMessages, message.ID)
		}
	}
	c.LastActivity = message.Timestamp
	s.mu.Unlock()

	s.publish(chatKey(message.ChatID), latestKey(message.ChatID))
	return nil
}

func (s *MemoryStore) latestLocked(chatID string) *entity.Message {
	var latest *entity.Message
	for _, m := range s.messages[chatID] {
		if latest == nil || m.Timestamp.After(latest.Timestamp) {
			latest = m
		}
	}
	if latest == nil {
		return nil
	}
	return cloneMessage(latest)
}

func (r *memoryChatRepository) GetLatestMessage(ctx context.Context, chatID string) (*entity.Message, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("chat:" + chatID); err != nil {
		return nil, err
	}
	return s.latestLocked(chatID), nil
}

func (r *memoryChatRepository) ListMessages(ctx context.Context, chatID string, limit int, before time.Time) ([]*entity.Message, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Message
	for _, m := range s.messages[chatID] {
		if before.IsZero() || m.Timestamp.Before(before) {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryChatRepository) MarkRead(ctx context.Context, chatID, userID string, at time.Time) error {
	s := r.store
	s.mu.Lock()
	c, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Chat", nil)
	}
	p, ok := c.Participant(userID)
	if !ok {
		s.mu.Unlock()
		return errors.Forbidden("You are not a participant of this chat", nil)
	}
	p.UnreadMessages = []string{}
	readAt := at
	p.LastReadTimestamp = &readAt
	s.mu.Unlock()

	s.publish(chatKey(chatID))
	return nil
}

func (r *memoryChatRepository) SetTyping(ctx context.Context, chatID, userID string, typing bool) error {
	s := r.store
	s.mu.Lock()
	c, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Chat", nil)
	}
	if c.Typing == nil {
		c.Typing = make(map[string]bool)
	}
	c.Typing[userID] = typing
	s.mu.Unlock()

	s.publish(chatKey(chatID))
	return nil
}

func (r *memoryChatRepository) Watch(ctx context.Context, chatID string, onChange repository.ChangeFunc[*entity.Chat]) repository.CancelFunc {
	s := r.store
	return s.watch(chatKey(chatID), func() {
		s.mu.RLock()
		c, ok := s.chats[chatID]
		var cp *entity.Chat
		if ok {
			cp = cloneChat(c)
		}
		s.mu.RUnlock()
		onChange(cp, nil)
	})
}

func (r *memoryChatRepository) WatchLatestMessage(ctx context.Context, chatID string, onChange repository.ChangeFunc[*entity.Message]) repository.CancelFunc {
	s := r.store
	return s.watch(latestKey(chatID), func() {
		s.mu.RLock()
		latest := s.latestLocked(chatID)
		s.mu.RUnlock()
		onChange(latest, nil)
	})
}
