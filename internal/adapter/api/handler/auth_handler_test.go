package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/adapter/api"
	"chatterbox/internal/adapter/repository"
	"chatterbox/internal/mocks"
	"chatterbox/internal/usecase"
)

const testSessionTTL = 5 * 24 * time.Hour

func newAuthHandler(t *testing.T) (*AuthHandler, *mocks.MockIdentityProvider) {
	t.Helper()
	identity := new(mocks.MockIdentityProvider)
	auth := usecase.NewAuthUseCase(repository.NewMemoryStore().Users(), identity, testSessionTTL)
	return NewAuthHandler(auth, true), identity
}

func newContext(method, target, body string, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = api.NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, cookie := range rec.Result().Cookies() {
		out[cookie.Name] = cookie
	}
	return out
}

func TestAuthHandler_LoginSetsCookies(t *testing.T) {
	h, identity := newAuthHandler(t)
	identity.On("SignIn", mock.Anything, "alice@example.com", "secret").
		Return("id-token", &usecase.Identity{UID: "alice", Email: "alice@example.com"}, nil)
	identity.On("CreateSessionCookie", mock.Anything, "id-token", testSessionTTL).Return("session-cookie", nil)

	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "alice", body.User.UID)

	cookies := responseCookies(rec)
	require.Contains(t, cookies, api.SessionCookie)
	require.Contains(t, cookies, api.EmailVerifiedCookie)
	session := cookies[api.SessionCookie]
	assert.Equal(t, "session-cookie", session.Value)
	assert.True(t, session.HttpOnly)
	assert.True(t, session.Secure)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, "/", session.Path)
	assert.Equal(t, int(testSessionTTL.Seconds()), session.MaxAge)
	assert.Equal(t, "false", cookies[api.EmailVerifiedCookie].Value)
}

func TestAuthHandler_LoginFailureUsesFlatShape(t *testing.T) {
	h, identity := newAuthHandler(t)
	identity.On("SignIn", mock.Anything, "alice@example.com", "wrong").
		Return("", nil, &usecase.ProviderError{Code: "INVALID_PASSWORD"})

	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"wrong"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid email or password.","code":"AUTH_ERROR"}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandler_LoginValidatesBody(t *testing.T) {
	h, identity := newAuthHandler(t)

	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"not-an-email","password":""}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	identity.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_LogoutClearsCookies(t *testing.T) {
	h, identity := newAuthHandler(t)
	identity.On("VerifySessionCookie", mock.Anything, "session-cookie").Return(&usecase.Identity{UID: "alice"}, nil)
	identity.On("RevokeSessions", mock.Anything, "alice").Return(nil)

	c, rec := newContext(http.MethodPost, "/api/auth/logout", "", &http.Cookie{Name: api.SessionCookie, Value: "session-cookie"})
	require.NoError(t, h.Logout(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := responseCookies(rec)
	require.Len(t, cookies, 2)
	for _, cookie := range cookies {
		assert.Empty(t, cookie.Value)
		assert.Equal(t, -1, cookie.MaxAge)
	}
	identity.AssertExpectations(t)
}

func TestAuthHandler_VerifySessionSyncsVerifiedFlag(t *testing.T) {
	h, identity := newAuthHandler(t)
	identity.On("VerifySessionCookie", mock.Anything, "session-cookie").
		Return(&usecase.Identity{UID: "alice", Email: "alice@example.com", EmailVerified: true}, nil)

	c, rec := newContext(http.MethodGet, "/api/auth/verify-session", "",
		&http.Cookie{Name: api.SessionCookie, Value: "session-cookie"},
		&http.Cookie{Name: api.EmailVerifiedCookie, Value: "false"},
	)
	require.NoError(t, h.VerifySession(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := responseCookies(rec)
	require.Contains(t, cookies, api.EmailVerifiedCookie)
	assert.Equal(t, "true", cookies[api.EmailVerifiedCookie].Value)
	assert.Equal(t, "session-cookie", cookies[api.SessionCookie].Value)
}

func TestAuthHandler_VerifySessionLeavesMatchingCookies(t *testing.T) {
	h, identity := newAuthHandler(t)
	identity.On("VerifySessionCookie", mock.Anything, "session-cookie").
		Return(&usecase.Identity{UID: "alice", EmailVerified: true}, nil)

	c, rec := newContext(http.MethodGet, "/api/auth/verify-session", "",
		&http.Cookie{Name: api.SessionCookie, Value: "session-cookie"},
		&http.Cookie{Name: api.EmailVerifiedCookie, Value: "true"},
	)
	require.NoError(t, h.VerifySession(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandler_VerifySessionMismatchClearsCookies(t *testing.T) {
	h, identity := newAuthHandler(t)
	identity.On("VerifySessionCookie", mock.Anything, "session-cookie").
		Return(&usecase.Identity{UID: "alice"}, nil)

	c, rec := newContext(http.MethodGet, "/api/auth/verify-session", "",
		&http.Cookie{Name: api.SessionCookie, Value: "session-cookie"},
	)
	c.Request().Header.Set(api.ClientUIDHeader, "bob")
	require.NoError(t, h.VerifySession(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"SESSION_MISMATCH"`)
	for _, cookie := range rec.Result().Cookies() {
		assert.Equal(t, -1, cookie.MaxAge)
	}
	assert.Len(t, rec.Result().Cookies(), 2)
}
