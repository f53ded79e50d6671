package usecase

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/domain/repository"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

// SessionRedirectDelay is how long a client shows a session error before
// navigating to the login page.
const SessionRedirectDelay = 2000 * time.Millisecond

const genericAuthMessage = "Authentication failed. Please try again."

type authMessage struct {
	message string
	status  int
}

// authMessages translates identity provider codes into user-facing messages.
var authMessages = map[string]authMessage{
	"EMAIL_EXISTS":                {"An account with this email already exists.", http.StatusConflict},
	"EMAIL_NOT_FOUND":             {"Invalid email or password.", http.StatusUnauthorized},
	"INVALID_PASSWORD":            {"Invalid email or password.", http.StatusUnauthorized},
	"INVALID_LOGIN_CREDENTIALS":   {"Invalid email or password.", http.StatusUnauthorized},
	"INVALID_EMAIL":               {"Please enter a valid email address.", http.StatusBadRequest},
	"MISSING_PASSWORD":            {"Please enter your password.", http.StatusBadRequest},
	"WEAK_PASSWORD":               {"Password should be at least 6 characters.", http.StatusBadRequest},
	"USER_DISABLED":               {"This account has been disabled.", http.StatusForbidden},
	"USER_NOT_FOUND":              {"No account exists for this session.", http.StatusUnauthorized},
	"TOO_MANY_ATTEMPTS_TRY_LATER": {"Too many attempts. Please try again later.", http.StatusTooManyRequests},
	"OPERATION_NOT_ALLOWED":       {"This sign-in method is not enabled.", http.StatusForbidden},
	"EXPIRED_OOB_CODE":            {"The verification link has expired.", http.StatusBadRequest},
	"INVALID_OOB_CODE":            {"The verification link is invalid.", http.StatusBadRequest},
	"INVALID_ID_TOKEN":            {"Your session has expired. Please sign in again.", http.StatusUnauthorized},
	"SESSION_EXPIRED":             {"Your session has expired. Please sign in again.", http.StatusUnauthorized},
	"SESSION_REVOKED":             {"Your session was revoked. Please sign in again.", http.StatusUnauthorized},
	"INVALID_SESSION":             {"Your session is invalid. Please sign in again.", http.StatusUnauthorized},
}

// TranslateAuthError maps a provider failure to an AUTH_ERROR with a fixed
// message, falling back to a generic one for unknown codes.
func TranslateAuthError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var providerErr *ProviderError
	if stderrors.As(err, &providerErr) {
		if m, ok := authMessages[providerErr.Code]; ok {
			return errors.Auth(m.message, m.status, err)
		}
	}
	return errors.Auth(genericAuthMessage, http.StatusUnauthorized, err)
}

type SessionUser struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
}

type Session struct {
	Cookie string
	TTL    time.Duration
	User   SessionUser
}

type LoginInput struct {
	Email    string
	Password string
	IsSignup bool
	Nickname string
}

type AuthUseCase struct {
	userRepo   repository.UserRepository
	identity   IdentityProvider
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAuthUseCase(userRepo repository.UserRepository, identity IdentityProvider, sessionTTL time.Duration) *AuthUseCase {
	return &AuthUseCase{
		userRepo:   userRepo,
		identity:   identity,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func toSessionUser(identity *Identity) SessionUser {
	return SessionUser{
		UID:           identity.UID,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		DisplayName:   identity.DisplayName,
	}
}

// Login signs in, or signs up when input.IsSignup, and exchanges the resulting
// ID token for a session cookie.
func (uc *AuthUseCase) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, errors.Validation("email and password are required")
	}

	var (
		idToken  string
		identity *Identity
		err      error
	)
	if input.IsSignup {
		idToken, identity, err = uc.signUp(ctx, email, input.Password, strings.TrimSpace(input.Nickname))
	} else {
		idToken, identity, err = uc.identity.SignIn(ctx, email, input.Password)
		if err == nil {
			uc.backfillProfile(ctx, identity)
		}
	}
	if err != nil {
		logger.Warn("Authentication failed for %s: %v", email, err)
		return nil, TranslateAuthError(err)
	}

	cookie, err := uc.identity.CreateSessionCookie(ctx, idToken, uc.sessionTTL)
	if err != nil {
		logger.Error("Failed to create session cookie for %s: %v", identity.UID, err)
		return nil, TranslateAuthError(err)
	}

	return &Session{
		Cookie: cookie,
		TTL:    uc.sessionTTL,
		User:   toSessionUser(identity),
	}, nil
}

func (uc *AuthUseCase) signUp(ctx context.Context, email, password, nickname string) (string, *Identity, error) {
	idToken, identity, err := uc.identity.SignUp(ctx, email, password, nickname)
	if err != nil {
		return "", nil, err
	}

	user := entity.NewUser(identity.UID, identity.Email, nickname, uc.now().UTC())
	if err := uc.userRepo.Create(ctx, user); err != nil && !errors.Is(err, errors.CodeConflict) {
		logger.Error("Failed to create user document for %s: %v", identity.UID, err)
		return "", nil, err
	}
	if identity.DisplayName == "" {
		identity.DisplayName = user.DisplayName
	}

	if err := uc.identity.SendVerificationEmail(ctx, identity.UID); err != nil {
		logger.Warn("Failed to send verification email to %s: %v", identity.UID, err)
	}
	return idToken, identity, nil
}

// backfillProfile creates the user document for accounts that predate it.
func (uc *AuthUseCase) backfillProfile(ctx context.Context, identity *Identity) {
	user, err := uc.userRepo.GetByID(ctx, identity.UID)
	if err == nil {
		if identity.DisplayName == "" {
			identity.DisplayName = user.DisplayName
		}
		return
	}
	if !errors.Is(err, errors.CodeNotFound) {
		logger.Warn("Could not load profile of %s: %v", identity.UID, err)
		return
	}

	user = entity.NewUser(identity.UID, identity.Email, identity.DisplayName, uc.now().UTC())
	if err := uc.userRepo.Create(ctx, user); err != nil && !errors.Is(err, errors.CodeConflict) {
		logger.Warn("Failed to backfill profile of %s: %v", identity.UID, err)
		return
	}
	logger.Info("Backfilled missing profile for %s", identity.UID)
	if identity.DisplayName == "" {
		identity.DisplayName = user.DisplayName
	}
}

// Logout revokes the session's refresh tokens when the cookie is still valid.
// Failures are logged; the caller clears cookies regardless.
func (uc *AuthUseCase) Logout(ctx context.Context, cookie string) error {
	if cookie == "" {
		return nil
	}
	identity, err := uc.identity.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil
	}
	if err := uc.identity.RevokeSessions(ctx, identity.UID); err != nil {
		logger.Warn("Failed to revoke sessions of %s: %v", identity.UID, err)
	}
	return nil
}

// VerifySession validates the cookie. A non-empty clientUID that differs from the
// session's user is a SESSION_MISMATCH.
func (uc *AuthUseCase) VerifySession(ctx context.Context, cookie, clientUID string) (*SessionUser, error) {
	if cookie == "" {
		return nil, errors.Unauthorized("No active session", nil)
	}

	identity, err := uc.identity.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return nil, TranslateAuthError(err)
	}

	if clientUID != "" && clientUID != identity.UID {
		logger.Warn("Session mismatch: client reported %s, session belongs to %s", clientUID, identity.UID)
		return nil, errors.SessionMismatch("Your session does not match the signed-in account. Please sign in again.").
			WithDetails(map[string]interface{}{"redirectAfterMs": SessionRedirectDelay.Milliseconds()})
	}

	user := toSessionUser(identity)
	return &user, nil
}

func (uc *AuthUseCase) ResendVerification(ctx context.Context, cookie string) (*SessionUser, error) {
	user, err := uc.VerifySession(ctx, cookie, "")
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return nil, errors.BadRequest("Email is already verified", nil)
	}

	if err := uc.identity.SendVerificationEmail(ctx, user.UID); err != nil {
		logger.Error("Failed to resend verification email to %s: %v", user.UID, err)
		return nil, TranslateAuthError(err)
	}
	return user, nil
}

func (uc *AuthUseCase) SessionTTL() time.Duration {
	return uc.sessionTTL
}
