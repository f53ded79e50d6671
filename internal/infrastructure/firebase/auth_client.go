package firebase

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"chatterbox/internal/usecase"
)

// FirebaseAuthClient implements usecase.IdentityProvider with the Admin SDK for
// account and session management and the Identity Toolkit API for password
// sign-in and verification mail.
type FirebaseAuthClient struct {
	client  *auth.Client
	toolkit *identitytoolkit.Service
}

func NewFirebaseAuthClient(ctx context.Context, client *auth.Client, apiKey string) (*FirebaseAuthClient, error) {
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &FirebaseAuthClient{
		client:  client,
		toolkit: toolkit,
	}, nil
}

func (f *FirebaseAuthClient) SignUp(ctx context.Context, email, password, displayName string) (string, *usecase.Identity, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}

	if _, err := f.client.CreateUser(ctx, params); err != nil {
		return "", nil, adminError(err)
	}
	return f.SignIn(ctx, email, password)
}

func (f *FirebaseAuthClient) SignIn(ctx context.Context, email, password string) (string, *usecase.Identity, error) {
	resp, err := f.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, toolkitError(err)
	}

	identity, err := f.lookup(ctx, resp.LocalId)
	if err != nil {
		return "", nil, err
	}
	return resp.IdToken, identity, nil
}

func (f *FirebaseAuthClient) CreateSessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error) {
	cookie, err := f.client.SessionCookie(ctx, idToken, ttl)
	if err != nil {
		return "", &usecase.ProviderError{Code: "INVALID_ID_TOKEN", Err: err}
	}
	return cookie, nil
}

func (f *FirebaseAuthClient) VerifySessionCookie(ctx context.Context, cookie string) (*usecase.Identity, error) {
	token, err := f.client.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		if auth.IsSessionCookieExpired(err) {
			return nil, &usecase.ProviderError{Code: "SESSION_EXPIRED", Err: err}
		}
		if auth.IsSessionCookieRevoked(err) {
			return nil, &usecase.ProviderError{Code: "SESSION_REVOKED", Err: err}
		}
		if auth.IsUserDisabled(err) {
			return nil, &usecase.ProviderError{Code: "USER_DISABLED", Err: err}
		}
		return nil, &usecase.ProviderError{Code: "INVALID_SESSION", Err: err}
	}
	return f.lookup(ctx, token.UID)
}

func (f *FirebaseAuthClient) RevokeSessions(ctx context.Context, uid string) error {
	if err := f.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return adminError(err)
	}
	return nil
}

// SendVerificationEmail mints a short-lived ID token for uid and asks the
// provider to mail the verification link.
func (f *FirebaseAuthClient) SendVerificationEmail(ctx context.Context, uid string) error {
	customToken, err := f.client.CustomToken(ctx, uid)
	if err != nil {
		return adminError(err)
	}

	exchanged, err := f.toolkit.Relyingparty.VerifyCustomToken(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyCustomTokenRequest{
		Token:             customToken,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return toolkitError(err)
	}

	_, err = f.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "VERIFY_EMAIL",
		IdToken:     exchanged.IdToken,
	}).Context(ctx).Do()
	if err != nil {
		return toolkitError(err)
	}
	return nil
}

func (f *FirebaseAuthClient) lookup(ctx context.Context, uid string) (*usecase.Identity, error) {
	record, err := f.client.GetUser(ctx, uid)
	if err != nil {
		return nil, adminError(err)
	}
	return &usecase.Identity{
		UID:           record.UID,
		Email:         record.Email,
		EmailVerified: record.EmailVerified,
		DisplayName:   record.DisplayName,
	}, nil
}

// toolkitError extracts the provider code from messages such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func toolkitError(err error) error {
	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		return &usecase.ProviderError{Code: "UNKNOWN", Err: err}
	}
	return &usecase.ProviderError{Code: providerCode(apiErr.Message), Err: err}
}

func providerCode(message string) string {
	code := strings.TrimSpace(message)
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	if code == "" {
		return "UNKNOWN"
	}
	return code
}

func adminError(err error) error {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return &usecase.ProviderError{Code: "EMAIL_EXISTS", Err: err}
	case auth.IsUserNotFound(err):
		return &usecase.ProviderError{Code: "USER_NOT_FOUND", Err: err}
	case auth.IsUserDisabled(err):
		return &usecase.ProviderError{Code: "USER_DISABLED", Err: err}
	default:
		return &usecase.ProviderError{Code: "UNKNOWN", Err: err}
	}
}
