package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

// chatDocument is the persisted chat layout. Participants are keyed by user id so
// that per-participant fields can be updated atomically through field paths.
type chatDocument struct {
	ID             string                         `firestore:"id"`
	Type           string                         `firestore:"type"`
	Name           string                         `firestore:"name,omitempty"`
	DirectKey      string                         `firestore:"directKey,omitempty"`
	ParticipantIDs []string                       `firestore:"participantIds"`
	Participants   map[string]participantDocument `firestore:"participants"`
	Typing         map[string]bool                `firestore:"typing,omitempty"`
	CreatedAt      time.Time                      `firestore:"createdAt"`
	LastActivity   time.Time                      `firestore:"lastActivity"`
}

type participantDocument struct {
	Role              string     `firestore:"role"`
	JoinedAt          time.Time  `firestore:"joinedAt"`
	LastReadTimestamp *time.Time `firestore:"lastReadTimestamp,omitempty"`
	UnreadMessages    []string   `firestore:"unreadMessages"`
}

func toChatDocument(chat *entity.Chat) chatDocument {
	doc := chatDocument{
		ID:             chat.ID,
		Type:           string(chat.Type),
		Name:           chat.Name,
		ParticipantIDs: chat.ParticipantIDs(),
		Participants:   make(map[string]participantDocument, len(chat.Participants)),
		Typing:         chat.Typing,
		CreatedAt:      chat.CreatedAt,
		LastActivity:   chat.LastActivity,
	}
	if chat.Type == entity.ChatTypeDirect && len(chat.Participants) == 2 {
		doc.DirectKey = entity.DirectKey(chat.Participants[0].UserID, chat.Participants[1].UserID)
	}
	for _, p := range chat.Participants {
		unread := p.UnreadMessages
		if unread == nil {
			unread = []string{}
		}
		doc.Participants[p.UserID] = participantDocument{
			Role:              string(p.Role),
			JoinedAt:          p.JoinedAt,
			LastReadTimestamp: p.LastReadTimestamp,
			UnreadMessages:    unread,
		}
	}
	return doc
}

func (d chatDocument) toEntity() *entity.Chat {
	chat := &entity.Chat{
		ID:           d.ID,
		Type:         entity.ChatType(d.Type),
		Name:         d.Name,
		Typing:       d.Typing,
		CreatedAt:    d.CreatedAt,
		LastActivity: d.LastActivity,
	}
	for userID, p := range d.Participants {
		chat.Participants = append(chat.Participants, entity.Participant{
			UserID:            userID,
			Role:              entity.ParticipantRole(p.Role),
			JoinedAt:          p.JoinedAt,
			LastReadTimestamp: p.LastReadTimestamp,
			UnreadMessages:    p.UnreadMessages,
		})
	}
	sort.Slice(chat.Participants, func(i, j int) bool {
		a, b := chat.Participants[i], chat.Participants[j]
		if a.JoinedAt.Equal(b.JoinedAt) {
			return a.UserID < b.UserID
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})
	return chat
}

func decodeChat(doc *firestore.DocumentSnapshot) (*entity.Chat, error) {
	var cd chatDocument
	if err := doc.DataTo(&cd); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	if cd.ID == "" {
		cd.ID = doc.Ref.ID
	}
	return cd.toEntity(), nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	if message.ID == "" {
		message.ID = doc.Ref.ID
	}
	return &message, nil
}

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) chats() *firestore.CollectionRef {
	return r.client.Collection(chatsCollection)
}

func (r *firestoreChatRepository) messages(chatID string) *firestore.CollectionRef {
	return r.chats().Doc(chatID).Collection(messagesCollection)
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.chats().Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError("Chat", "get chat", err)
	}
	return decodeChat(doc)
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat, visibleTo []string) error {
	chatRef := r.chats().Doc(chat.ID)
	users := r.client.Collection(usersCollection)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(chatRef, toChatDocument(chat)); err != nil {
			return err
		}
		for _, userID := range visibleTo {
			if err := tx.Update(users.Doc(userID), []firestore.Update{
				{Path: "chats", Value: firestore.ArrayUnion(chat.ID)},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to create chat %s: %v", chat.ID, err)
	}
	return storeError("Chat", "create chat", err)
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	chatRef := r.chats().Doc(message.ChatID)
	msgRef := r.messages(message.ChatID).Doc(message.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		chatSnap, err := tx.Get(chatRef)
		if err != nil {
			return err
		}
		chat, err := decodeChat(chatSnap)
		if err != nil {
			return err
		}
		if !chat.IsParticipant(message.SenderID) {
			return errors.Forbidden("You are not a participant of this chat", nil)
		}

		if existing, err := tx.Get(msgRef); err == nil {
			stored, err := decodeMessage(existing)
			if err != nil {
				return err
			}
			if !message.IsRedeliveryOf(stored) {
				return errors.Conflict("Message id is already in use")
			}
			// Already delivered by an earlier attempt.
			return nil
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		if err := tx.Create(msgRef, message); err != nil {
			return err
		}

		updates := []firestore.Update{{Path: "lastActivity", Value: message.Timestamp}}
		for _, userID := range chat.OtherParticipantIDs(message.SenderID) {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"participants", userID, "unreadMessages"},
				Value:     firestore.ArrayUnion(message.ID),
			})
		}
		return tx.Update(chatRef, updates)
	})
	return storeError("Chat", "send message", err)
}

func (r *firestoreChatRepository) latestQuery(chatID string) firestore.Query {
	return r.messages(chatID).OrderBy("timestamp", firestore.Desc)
}

func (r *firestoreChatRepository) GetLatestMessage(ctx context.Context, chatID string) (*entity.Message, error) {
	docs, err := r.latestQuery(chatID).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, storeError("Message", "get latest message", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decodeMessage(docs[0])
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string, limit int, before time.Time) ([]*entity.Message, error) {
	query := r.latestQuery(chatID)
	if !before.IsZero() {
		query = query.Where("timestamp", "<", before)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, storeError("Message", "list messages", err)
		}
		message, err := decodeMessage(doc)
		if err != nil {
			logger.Warn("Skipping malformed message %s in chat %s: %v", doc.Ref.ID, chatID, err)
			continue
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, chatID, userID string, at time.Time) error {
	chatRef := r.chats().Doc(chatID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(chatRef)
		if err != nil {
			return err
		}
		chat, err := decodeChat(snap)
		if err != nil {
			return err
		}
		if !chat.IsParticipant(userID) {
			return errors.Forbidden("You are not a participant of this chat", nil)
		}
		return tx.Update(chatRef, []firestore.Update{
			{FieldPath: firestore.FieldPath{"participants", userID, "unreadMessages"}, Value: []string{}},
			{FieldPath: firestore.FieldPath{"participants", userID, "lastReadTimestamp"}, Value: at},
		})
	})
	return storeError("Chat", "mark chat as read", err)
}

func (r *firestoreChatRepository) SetTyping(ctx context.Context, chatID, userID string, typing bool) error {
	_, err := r.chats().Doc(chatID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"typing", userID}, Value: typing},
	})
	return storeError("Chat", "update typing status", err)
}

func (r *firestoreChatRepository) Watch(ctx context.Context, chatID string, onChange repository.ChangeFunc[*entity.Chat]) repository.CancelFunc {
	return watchDocument(ctx, r.chats().Doc(chatID), decodeChat, onChange)
}

func (r *firestoreChatRepository) WatchLatestMessage(ctx context.Context, chatID string, onChange repository.ChangeFunc[*entity.Message]) repository.CancelFunc {
	return watchFirst(ctx, r.latestQuery(chatID), decodeMessage, onChange)
}
