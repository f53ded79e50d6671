package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/mocks"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
)

const sessionTTL = 5 * 24 * time.Hour

func newAuth(t *testing.T, f *fixture) (*usecase.AuthUseCase, *mocks.MockIdentityProvider) {
	t.Helper()
	identity := new(mocks.MockIdentityProvider)
	return usecase.NewAuthUseCase(f.users, identity, sessionTTL), identity
}

func appError(t *testing.T, err error) *errors.AppError {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr
}

func TestAuthUseCase_SignInBackfillsProfile(t *testing.T) {
	f := newFixture(t)
	auth, identity := newAuth(t, f)

	identity.On("SignIn", mock.Anything, "alice@example.com", "secret").
		Return("id-token", &usecase.Identity{UID: "alice", Email: "alice@example.com", EmailVerified: true}, nil)
	identity.On("CreateSessionCookie", mock.Anything, "id-token", sessionTTL).Return("cookie", nil)

	session, err := auth.Login(context.Background(), usecase.LoginInput{Email: " Alice@Example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "cookie", session.Cookie)
	assert.Equal(t, sessionTTL, session.TTL)
	assert.Equal(t, "alice", session.User.UID)
	assert.True(t, session.User.EmailVerified)

	user := f.user(t, "alice")
	assert.Equal(t, "alice", user.DisplayName)
	assert.NotNil(t, user.Chats)
	assert.Equal(t, "alice", session.User.DisplayName)
	identity.AssertExpectations(t)
}

func TestAuthUseCase_SignUpCreatesProfileAndSendsVerification(t *testing.T) {
	f := newFixture(t)
	auth, identity := newAuth(t, f)

	identity.On("SignUp", mock.Anything, "bob@example.com", "secret", "Bobby").
		Return("id-token", &usecase.Identity{UID: "bob", Email: "bob@example.com"}, nil)
	identity.On("SendVerificationEmail", mock.Anything, "bob").Return(&usecase.ProviderError{Code: "TOO_MANY_ATTEMPTS_TRY_LATER"})
	identity.On("CreateSessionCookie", mock.Anything, "id-token", sessionTTL).Return("cookie", nil)

	session, err := auth.Login(context.Background(), usecase.LoginInput{
		Email: "bob@example.com", Password: "secret", IsSignup: true, Nickname: "Bobby",
	})
	require.NoError(t, err)
	assert.False(t, session.User.EmailVerified)
	assert.Equal(t, "Bobby", session.User.DisplayName)

	user := f.user(t, "bob")
	assert.Equal(t, "Bobby", user.DisplayName)
	assert.Equal(t, "bobby", user.Username)
	identity.AssertExpectations(t)
}

func TestAuthUseCase_LoginTranslatesProviderErrors(t *testing.T) {
	tests := []struct {
		code    string
		status  int
		message string
	}{
		{"INVALID_PASSWORD", http.StatusUnauthorized, "Invalid email or password."},
		{"EMAIL_EXISTS", http.StatusConflict, "An account with this email already exists."},
		{"TOO_MANY_ATTEMPTS_TRY_LATER", http.StatusTooManyRequests, "Too many attempts. Please try again later."},
		{"SOMETHING_NEW", http.StatusUnauthorized, "Authentication failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			f := newFixture(t)
			auth, identity := newAuth(t, f)
			identity.On("SignIn", mock.Anything, "alice@example.com", "pw").
				Return("", nil, &usecase.ProviderError{Code: tt.code})

			_, err := auth.Login(context.Background(), usecase.LoginInput{Email: "alice@example.com", Password: "pw"})
			appErr := appError(t, err)
			assert.Equal(t, errors.CodeAuth, appErr.Code)
			assert.Equal(t, tt.status, appErr.Status)
			assert.Equal(t, tt.message, appErr.Message)
			identity.AssertNotCalled(t, "CreateSessionCookie", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAuthUseCase_LoginRequiresCredentials(t *testing.T) {
	auth, identity := newAuth(t, newFixture(t))

	_, err := auth.Login(context.Background(), usecase.LoginInput{Email: "alice@example.com"})
	assert.True(t, errors.Is(err, errors.CodeValidation))
	identity.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthUseCase_VerifySession(t *testing.T) {
	auth, identity := newAuth(t, newFixture(t))
	identity.On("VerifySessionCookie", mock.Anything, "cookie").
		Return(&usecase.Identity{UID: "alice", Email: "alice@example.com", EmailVerified: true}, nil)
	identity.On("VerifySessionCookie", mock.Anything, "revoked").
		Return(nil, &usecase.ProviderError{Code: "SESSION_REVOKED"})

	user, err := auth.VerifySession(context.Background(), "cookie", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UID)

	user, err = auth.VerifySession(context.Background(), "cookie", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UID)

	_, err = auth.VerifySession(context.Background(), "", "")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	_, err = auth.VerifySession(context.Background(), "revoked", "")
	assert.Equal(t, http.StatusUnauthorized, appError(t, err).Status)
	assert.Equal(t, "Your session was revoked. Please sign in again.", appError(t, err).Message)
}

func TestAuthUseCase_VerifySessionMismatch(t *testing.T) {
	auth, identity := newAuth(t, newFixture(t))
	identity.On("VerifySessionCookie", mock.Anything, "cookie").Return(&usecase.Identity{UID: "alice"}, nil)

	_, err := auth.VerifySession(context.Background(), "cookie", "bob")
	appErr := appError(t, err)
	assert.Equal(t, errors.CodeSessionMismatch, appErr.Code)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.Equal(t, map[string]interface{}{"redirectAfterMs": int64(2000)}, appErr.Details)
}

func TestAuthUseCase_LogoutRevokesBestEffort(t *testing.T) {
	auth, identity := newAuth(t, newFixture(t))
	identity.On("VerifySessionCookie", mock.Anything, "cookie").Return(&usecase.Identity{UID: "alice"}, nil)
	identity.On("RevokeSessions", mock.Anything, "alice").Return(errors.Internal("boom", nil))

	assert.NoError(t, auth.Logout(context.Background(), "cookie"))
	assert.NoError(t, auth.Logout(context.Background(), ""))
	identity.AssertNumberOfCalls(t, "RevokeSessions", 1)
}

func TestAuthUseCase_ResendVerification(t *testing.T) {
	auth, identity := newAuth(t, newFixture(t))
	identity.On("VerifySessionCookie", mock.Anything, "verified").Return(&usecase.Identity{UID: "alice", EmailVerified: true}, nil)
	identity.On("VerifySessionCookie", mock.Anything, "pending").Return(&usecase.Identity{UID: "bob", Email: "bob@example.com"}, nil)
	identity.On("SendVerificationEmail", mock.Anything, "bob").Return(nil)

	_, err := auth.ResendVerification(context.Background(), "verified")
	assert.Equal(t, http.StatusBadRequest, appError(t, err).Status)

	user, err := auth.ResendVerification(context.Background(), "pending")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)
	identity.AssertCalled(t, "SendVerificationEmail", mock.Anything, "bob")
}

func TestTranslateAuthError_PassesAppErrorsThrough(t *testing.T) {
	original := errors.TooManyRequests("slow down")
	assert.Same(t, original, usecase.TranslateAuthError(original))
	assert.NoError(t, usecase.TranslateAuthError(nil))
}
