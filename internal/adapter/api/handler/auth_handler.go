package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/response"
)

type AuthHandler struct {
	authUseCase  *usecase.AuthUseCase
	cookieSecure bool
}

func NewAuthHandler(authUseCase *usecase.AuthUseCase, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		authUseCase:  authUseCase,
		cookieSecure: cookieSecure,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	IsSignup bool   `json:"isSignup"`
	Nickname string `json:"nickname" validate:"omitempty,max=50"`
}

type authResponse struct {
	Success bool                 `json:"success"`
	User    *usecase.SessionUser `json:"user,omitempty"`
	Error   string               `json:"error,omitempty"`
	Code    string               `json:"code,omitempty"`
}

// authError renders err in the flat {success:false,error} shape the login page
// reads, keeping the AppError's status.
func authError(c echo.Context, err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal("An unexpected error occurred", err)
	}
	return c.JSON(appErr.Status, authResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return authError(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return authError(c, errors.Validation("A valid email and password are required"))
	}

	session, err := h.authUseCase.Login(c.Request().Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IsSignup: req.IsSignup,
		Nickname: req.Nickname,
	})
	if err != nil {
		return authError(c, err)
	}

	api.SetSessionCookies(c, session.Cookie, session.User.EmailVerified, session.TTL, h.cookieSecure)

	return c.JSON(http.StatusOK, authResponse{
		Success: true,
		User:    &session.User,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	h.authUseCase.Logout(c.Request().Context(), api.CookieValue(c, api.SessionCookie))
	api.ClearSessionCookies(c, h.cookieSecure)

	return c.JSON(http.StatusOK, authResponse{Success: true})
}

// VerifySession reports the session's user. An invalid or mismatched session
// clears the cookies so the page falls back to login.
func (h *AuthHandler) VerifySession(c echo.Context) error {
	user, err := h.authUseCase.VerifySession(
		c.Request().Context(),
		api.CookieValue(c, api.SessionCookie),
		c.Request().Header.Get(api.ClientUIDHeader),
	)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok &&
			(appErr.Status == http.StatusUnauthorized || appErr.Code == errors.CodeSessionMismatch) {
			api.ClearSessionCookies(c, h.cookieSecure)
		}
		return response.Error(c, err)
	}

	// Keep the page gate's flag in line with the identity provider.
	if api.CookieValue(c, api.EmailVerifiedCookie) != boolString(user.EmailVerified) {
		if cookie, err := c.Cookie(api.SessionCookie); err == nil {
			api.SetSessionCookies(c, cookie.Value, user.EmailVerified, h.authUseCase.SessionTTL(), h.cookieSecure)
		}
	}

	return c.JSON(http.StatusOK, authResponse{
		Success: true,
		User:    user,
	})
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	user, err := h.authUseCase.ResendVerification(c.Request().Context(), api.CookieValue(c, api.SessionCookie))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"message": "Verification email sent to " + user.Email,
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
