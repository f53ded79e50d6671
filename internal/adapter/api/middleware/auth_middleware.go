package middleware

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/response"
)

const (
	ContextUID           = "uid"
	ContextEmailVerified = "emailVerified"
)

type AuthMiddleware struct {
	authUseCase  *usecase.AuthUseCase
	cookieSecure bool
}

func NewAuthMiddleware(authUseCase *usecase.AuthUseCase, cookieSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		authUseCase:  authUseCase,
		cookieSecure: cookieSecure,
	}
}

// Authenticate requires a valid session cookie. A failed check clears the
// session cookies.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.authUseCase.VerifySession(
			c.Request().Context(),
			api.CookieValue(c, api.SessionCookie),
			c.Request().Header.Get(api.ClientUIDHeader),
		)
		if err != nil {
			api.ClearSessionCookies(c, m.cookieSecure)
			return response.Error(c, err)
		}

		c.Set(ContextUID, user.UID)
		c.Set(ContextEmailVerified, user.EmailVerified)

		return next(c)
	}
}

// UserID returns the authenticated user id set by Authenticate.
func UserID(c echo.Context) string {
	uid, _ := c.Get(ContextUID).(string)
	return uid
}
