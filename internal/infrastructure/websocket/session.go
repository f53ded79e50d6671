package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/infrastructure/debounce"
	"chatterbox/internal/infrastructure/metrics"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

// SessionDeps are the use cases a realtime session drives.
type SessionDeps struct {
	ChatList       *usecase.ChatListUseCase
	Messages       *usecase.MessageUseCase
	Friends        *usecase.FriendUseCase
	TypingTimeout  time.Duration
	SearchDebounce time.Duration
}

// Session is the server side of one realtime connection: it streams the user's
// chat list and turns client events into use case calls.
type Session struct {
	userID string
	deps   SessionDeps
	send   func([]byte) bool

	ctx    context.Context
	cancel context.CancelFunc
	outbox *usecase.Outbox
	search *debounce.Debouncer

	mu     sync.Mutex
	typing map[string]*usecase.TypingController
	list   *usecase.ChatListSubscription
	pumpWG sync.WaitGroup
	closed bool
}

func NewSession(ctx context.Context, userID string, deps SessionDeps, send func([]byte) bool) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		userID: userID,
		deps:   deps,
		send:   send,
		ctx:    ctx,
		cancel: cancel,
		search: debounce.New(deps.SearchDebounce),
		typing: make(map[string]*usecase.TypingController),
	}
	// Sends already dispatched must still land after the socket goes away.
	s.outbox = usecase.NewOutbox(context.WithoutCancel(ctx), deps.Messages, s.onOutbox)
	return s
}

// Start opens the chat list stream. The light mode only follows last messages
// of the list loaded at connect time.
func (s *Session) Start(light bool) error {
	var sub *usecase.ChatListSubscription
	if light {
		initial, err := s.deps.ChatList.Build(s.ctx, s.userID)
		if err != nil {
			return err
		}
		sub = s.deps.ChatList.SubscribeLastMessages(s.ctx, s.userID, initial)
	} else {
		sub = s.deps.ChatList.Subscribe(s.ctx, s.userID)
	}

	s.mu.Lock()
	s.list = sub
	s.mu.Unlock()

	s.pumpWG.Add(1)
	go func() {
		defer s.pumpWG.Done()
		for list := range sub.Updates() {
			s.emit(MessageTypeChatList, list)
		}
	}()
	return nil
}

// Close tears down the chat list stream, typing timers and pending searches.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	list := s.list
	controllers := s.typing
	s.typing = make(map[string]*usecase.TypingController)
	s.mu.Unlock()

	s.search.Stop()
	for _, controller := range controllers {
		controller.Close()
	}
	if list != nil {
		list.Close()
	}
	s.cancel()
	s.pumpWG.Wait()
}

func (s *Session) emit(messageType string, data interface{}) {
	payload, err := encode(messageType, data)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s for user %s: %v", messageType, s.userID, err)
		return
	}
	s.send(payload)
}

func (s *Session) emitError(err error) {
	s.emit(MessageTypeError, errorData(err))
}

// Handle processes one inbound frame.
func (s *Session) Handle(raw []byte) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn("WebSocket: invalid frame from user %s: %v", s.userID, err)
		s.emitError(errors.BadRequest("Invalid message format", err))
		return
	}
	metrics.IncWSEvent(msg.Type)

	switch msg.Type {
	case MessageTypePing:
		s.emit(MessageTypePong, map[string]string{"status": "alive"})

	case MessageTypeSendMessage:
		var data SendMessageData
		if s.decode(msg, &data) {
			s.handleSendMessage(data)
		}

	case MessageTypeRetryMessage:
		var data RetryMessageData
		if s.decode(msg, &data) {
			if _, err := s.outbox.Retry(data.TempID); err != nil {
				s.emitError(err)
			}
		}

	case MessageTypeCompose:
		var data ComposeData
		if s.decode(msg, &data) {
			if controller := s.typingController(data.ChatID); controller != nil {
				controller.Input(data.Text)
			}
		}

	case MessageTypeMessageSentStopTyping:
		var data ChatRefData
		if s.decode(msg, &data) {
			if controller := s.typingController(data.ChatID); controller != nil {
				controller.Stop()
			}
		}

	case MessageTypeMarkRead:
		var data ChatRefData
		if s.decode(msg, &data) {
			if err := s.deps.Messages.MarkRead(s.ctx, data.ChatID, s.userID); err != nil {
				s.emitError(err)
			}
		}

	case MessageTypeSearchUsers:
		var data SearchUsersData
		if s.decode(msg, &data) {
			s.handleSearch(data.Query)
		}

	default:
		logger.Warn("WebSocket: unknown message type %q from user %s", msg.Type, s.userID)
		s.emitError(errors.BadRequest("Unknown message type", nil))
	}
}

func (s *Session) decode(msg WSMessage, v interface{}) bool {
	if len(msg.Data) == 0 {
		s.emitError(errors.BadRequest("Missing data for "+msg.Type, nil))
		return false
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		s.emitError(errors.BadRequest("Invalid data for "+msg.Type, err))
		return false
	}
	return true
}

func (s *Session) handleSendMessage(data SendMessageData) {
	_, err := s.outbox.Submit(data.TempID, usecase.SendMessageInput{
		ChatID:      data.ChatID,
		SenderID:    s.userID,
		Content:     data.Content,
		ReplyTo:     data.ReplyTo,
		Attachments: data.Attachments,
	})
	if err != nil {
		s.emit(MessageTypeMessageFailed, MessageStateData{
			TempID:  data.TempID,
			ChatID:  data.ChatID,
			Content: data.Content,
			Error:   errorData(err),
		})
		return
	}

	if controller := s.typingController(data.ChatID); controller != nil {
		controller.Stop()
	}
}

func (s *Session) onOutbox(entry usecase.OutboxEntry) {
	data := MessageStateData{
		TempID:  entry.TempID,
		ChatID:  entry.Message.ChatID,
		Content: entry.Message.Content,
		Message: entry.Message,
	}

	switch entry.State {
	case usecase.OutboxPending:
		s.emit(MessageTypeMessagePending, data)
	case usecase.OutboxConfirmed:
		s.emit(MessageTypeMessageConfirmed, data)
	case usecase.OutboxFailed:
		data.Error = errorData(entry.Err)
		data.Retryable = true
		s.emit(MessageTypeMessageFailed, data)
	}
}

func (s *Session) typingController(chatID string) *usecase.TypingController {
	if chatID == "" {
		s.emitError(errors.Validation("chat_id is required"))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	controller, ok := s.typing[chatID]
	if !ok {
		controller = usecase.NewTypingController(s.deps.Messages, chatID, s.userID, s.deps.TypingTimeout)
		s.typing[chatID] = controller
	}
	return controller
}

func (s *Session) handleSearch(query string) {
	s.search.Trigger(func() {
		users, err := s.deps.Friends.Search(s.ctx, query, s.userID)
		if err != nil {
			s.emitError(err)
			return
		}
		if users == nil {
			users = []entity.BaseUser{}
		}
		s.emit(MessageTypeSearchResults, SearchResultsData{Query: query, Users: users})
	})
}
