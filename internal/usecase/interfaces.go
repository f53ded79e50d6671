package usecase

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Identity is what the identity provider knows about an authenticated account.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// IdentityProvider is the external sign-in and session authority.
type IdentityProvider interface {
	// SignUp creates the account and returns a fresh ID token for it.
	SignUp(ctx context.Context, email, password, displayName string) (string, *Identity, error)
	SignIn(ctx context.Context, email, password string) (string, *Identity, error)
	CreateSessionCookie(ctx context.Context, idToken string, ttl time.Duration) (string, error)
	// VerifySessionCookie also checks revocation and returns current account state.
	VerifySessionCookie(ctx context.Context, cookie string) (*Identity, error)
	RevokeSessions(ctx context.Context, uid string) error
	SendVerificationEmail(ctx context.Context, uid string) error
}

// ProviderError is a failure reported by the identity provider with its own code,
// e.g. INVALID_PASSWORD or EMAIL_EXISTS.
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity provider: %s: %v", e.Code, e.Err)
	}
	return "identity provider: " + e.Code
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AssistantService produces generative text for the AI assist endpoint.
type AssistantService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AttachmentStore persists uploaded chat attachments and returns their public URL.
type AttachmentStore interface {
	UploadAttachment(ctx context.Context, chatID string, file io.Reader, contentType string) (string, error)
}
