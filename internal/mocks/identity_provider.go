package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chatterbox/internal/usecase"
)

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (string, *usecase.Identity, error) {
	args := m.Called(ctx, email, password, displayName)
	identity, _ := args.Get(1).(*usecase.Identity)
	return args.String(0), identity, args.Error(2)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (string, *usecase.Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(1).(*usecase.Identity)
	return args.String(0), identity, args.Error(2)
}

func (m *MockIdentityProvider) CreateSessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, idToken, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) VerifySessionCookie(ctx context.Context, cookie string) (*usecase.Identity, error) {
	args := m.Called(ctx, cookie)
	identity, _ := args.Get(0).(*usecase.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) RevokeSessions(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockIdentityProvider) SendVerificationEmail(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}
