package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id string, update repository.ProfileUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockUserRepository) SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]*entity.User, error) {
	args := m.Called(ctx, prefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) AddFriendPair(ctx context.Context, userID, friendID string) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *MockUserRepository) SetBlocked(ctx context.Context, userID, targetID string, blocked bool) error {
	args := m.Called(ctx, userID, targetID, blocked)
	return args.Error(0)
}

func (m *MockUserRepository) AddChat(ctx context.Context, userID, chatID string) error {
	args := m.Called(ctx, userID, chatID)
	return args.Error(0)
}

func (m *MockUserRepository) RemoveChat(ctx context.Context, userID, chatID string) error {
	args := m.Called(ctx, userID, chatID)
	return args.Error(0)
}

func (m *MockUserRepository) Watch(ctx context.Context, userID string, onChange repository.ChangeFunc[*entity.User]) repository.CancelFunc {
	args := m.Called(ctx, userID, onChange)
	if args.Get(0) == nil {
		return func() {}
	}
	return args.Get(0).(repository.CancelFunc)
}
