package usecase

import (
	"context"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

const (
	minSearchLength  = 2
	maxSearchResults = 10
)

type FriendUseCase struct {
	userRepo repository.UserRepository
}

func NewFriendUseCase(userRepo repository.UserRepository) *FriendUseCase {
	return &FriendUseCase{
		userRepo: userRepo,
	}
}

// Search matches the username index by prefix. Queries shorter than two
// characters return nothing without touching the store.
func (uc *FriendUseCase) Search(ctx context.Context, prefix, excludeUserID string) ([]entity.BaseUser, error) {
	query := entity.NormalizeUsername(prefix)
	if utf8.RuneCountInString(query) < minSearchLength {
		return []entity.BaseUser{}, nil
	}

	// One extra so the caller's own entry does not shrink the page.
	users, err := uc.userRepo.SearchByUsernamePrefix(ctx, query, maxSearchResults+1)
	if err != nil {
		logger.Warn("User search for %q failed: %v", query, err)
		return []entity.BaseUser{}, nil
	}

	results := make([]entity.BaseUser, 0, maxSearchResults)
	for _, u := range users {
		if u.ID == excludeUserID {
			continue
		}
		results = append(results, u.Base())
		if len(results) == maxSearchResults {
			break
		}
	}
	return results, nil
}

func (uc *FriendUseCase) loadPair(ctx context.Context, userID, otherID string) (*entity.User, *entity.User, error) {
	var user, other *entity.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := uc.userRepo.GetByID(gctx, userID)
		user = u
		return err
	})
	g.Go(func() error {
		u, err := uc.userRepo.GetByID(gctx, otherID)
		other = u
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return user, other, nil
}

// AddFriend links both users symmetrically. Adding an existing friend is a no-op.
func (uc *FriendUseCase) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == "" || friendID == "" {
		return errors.Validation("user id and friend id are required")
	}
	if userID == friendID {
		return errors.SelfReference("You cannot add yourself as a friend")
	}

	user, friend, err := uc.loadPair(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if user.HasBlocked(friendID) || friend.HasBlocked(userID) {
		return errors.Forbidden("Cannot add a blocked user as a friend", nil)
	}
	if user.IsFriend(friendID) && friend.IsFriend(userID) {
		return nil
	}

	return uc.userRepo.AddFriendPair(ctx, userID, friendID)
}

// Block hides the pair's direct chat from the blocker's list. The chat itself and
// the other user's view are left untouched.
func (uc *FriendUseCase) Block(ctx context.Context, userID, targetID string) error {
	if userID == "" || targetID == "" {
		return errors.Validation("user id and target id are required")
	}
	if userID == targetID {
		return errors.SelfReference("You cannot block yourself")
	}

	if err := uc.userRepo.SetBlocked(ctx, userID, targetID, true); err != nil {
		return err
	}
	return uc.userRepo.RemoveChat(ctx, userID, entity.DirectChatID(userID, targetID))
}

func (uc *FriendUseCase) Unblock(ctx context.Context, userID, targetID string) error {
	if userID == "" || targetID == "" {
		return errors.Validation("user id and target id are required")
	}
	if userID == targetID {
		return errors.SelfReference("You cannot unblock yourself")
	}
	return uc.userRepo.SetBlocked(ctx, userID, targetID, false)
}
