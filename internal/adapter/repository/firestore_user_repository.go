package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		return errors.Validation("user id is required")
	}
	_, err := r.users().Doc(user.ID).Create(ctx, user)
	return storeError("User", "create user", err)
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError("User", "get user", err)
	}
	return decodeUser(doc)
}

func decodeUser(doc *firestore.DocumentSnapshot) (*entity.User, error) {
	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	if user.ID == "" {
		user.ID = doc.Ref.ID
	}
	return &user, nil
}

func (r *firestoreUserRepository) UpdateProfile(ctx context.Context, id string, update repository.ProfileUpdate) error {
	var updates []firestore.Update
	if update.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "displayName", Value: *update.DisplayName})
	}
	if update.Username != nil {
		updates = append(updates, firestore.Update{Path: "username", Value: *update.Username})
	}
	if update.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: string(*update.Status)})
	}
	if len(updates) == 0 {
		return nil
	}

	logger.Debug("Updating profile of user %s (%d fields)", id, len(updates))
	_, err := r.users().Doc(id).Update(ctx, updates)
	return storeError("User", "update profile", err)
}

func (r *firestoreUserRepository) SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]*entity.User, error) {
	query := r.users().
		Where("username", ">=", prefix).
		Where("username", "<=", prefix+"\uf8ff").
		OrderBy("username", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var users []*entity.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, storeError("User", "search users", err)
		}
		user, err := decodeUser(doc)
		if err != nil {
			logger.Warn("Skipping malformed user document %s: %v", doc.Ref.ID, err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *firestoreUserRepository) AddFriendPair(ctx context.Context, userID, friendID string) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Update(r.users().Doc(userID), []firestore.Update{
			{Path: "friends.list", Value: firestore.ArrayUnion(friendID)},
		}); err != nil {
			return err
		}
		return tx.Update(r.users().Doc(friendID), []firestore.Update{
			{Path: "friends.list", Value: firestore.ArrayUnion(userID)},
		})
	})
	return storeError("User", "add friend", err)
}

func (r *firestoreUserRepository) SetBlocked(ctx context.Context, userID, targetID string, blocked bool) error {
	var value interface{} = firestore.ArrayRemove(targetID)
	if blocked {
		value = firestore.ArrayUnion(targetID)
	}
	_, err := r.users().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "blocked", Value: value},
	})
	return storeError("User", "update blocked list", err)
}

func (r *firestoreUserRepository) AddChat(ctx context.Context, userID, chatID string) error {
	_, err := r.users().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "chats", Value: firestore.ArrayUnion(chatID)},
	})
	return storeError("User", "add chat", err)
}

func (r *firestoreUserRepository) RemoveChat(ctx context.Context, userID, chatID string) error {
	_, err := r.users().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "chats", Value: firestore.ArrayRemove(chatID)},
	})
	return storeError("User", "remove chat", err)
}

func (r *firestoreUserRepository) Watch(ctx context.Context, userID string, onChange repository.ChangeFunc[*entity.User]) repository.CancelFunc {
	return watchDocument(ctx, r.users().Doc(userID), decodeUser, onChange)
}
