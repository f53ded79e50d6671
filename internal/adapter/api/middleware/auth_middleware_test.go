package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatterbox/internal/adapter/api"
	"chatterbox/internal/adapter/repository"
	"chatterbox/internal/mocks"
	"chatterbox/internal/usecase"
)

func newAuthenticated(t *testing.T) (*echo.Echo, *mocks.MockIdentityProvider) {
	t.Helper()
	identity := new(mocks.MockIdentityProvider)
	auth := usecase.NewAuthUseCase(repository.NewMemoryStore().Users(), identity, time.Hour)

	e := echo.New()
	e.GET("/api/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"uid":           UserID(c),
			"emailVerified": c.Get(ContextEmailVerified),
		})
	}, NewAuthMiddleware(auth, false).Authenticate)
	return e, identity
}

func TestAuthenticate_RejectsMissingSession(t *testing.T) {
	e, identity := newAuthenticated(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
	assert.Len(t, rec.Result().Cookies(), 2)
	for _, cookie := range rec.Result().Cookies() {
		assert.Equal(t, -1, cookie.MaxAge)
	}
	identity.AssertNotCalled(t, "VerifySessionCookie", mock.Anything, mock.Anything)
}

func TestAuthenticate_SetsUser(t *testing.T) {
	e, identity := newAuthenticated(t)
	identity.On("VerifySessionCookie", mock.Anything, "cookie").
		Return(&usecase.Identity{UID: "alice", EmailVerified: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: "cookie"})
	req.Header.Set(api.ClientUIDHeader, "alice")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uid":"alice","emailVerified":true}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthenticate_RejectsMismatchedClient(t *testing.T) {
	e, identity := newAuthenticated(t)
	identity.On("VerifySessionCookie", mock.Anything, "cookie").
		Return(&usecase.Identity{UID: "alice", EmailVerified: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: "cookie"})
	req.Header.Set(api.ClientUIDHeader, "mallory")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"SESSION_MISMATCH"`)
	assert.Contains(t, rec.Body.String(), `"redirectAfterMs":2000`)
}
