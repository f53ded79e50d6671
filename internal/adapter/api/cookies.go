package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	SessionCookie       = "session"
	EmailVerifiedCookie = "emailVerified"
	ClientUIDHeader     = "X-Client-Uid"
)

func newCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSessionCookies stores the session and its verification flag for ttl.
func SetSessionCookies(c echo.Context, session string, emailVerified bool, ttl time.Duration, secure bool) {
	c.SetCookie(newCookie(SessionCookie, session, ttl, secure))
	c.SetCookie(newCookie(EmailVerifiedCookie, strconv.FormatBool(emailVerified), ttl, secure))
}

func ClearSessionCookies(c echo.Context, secure bool) {
	for _, name := range []string{SessionCookie, EmailVerifiedCookie} {
		cookie := newCookie(name, "", 0, secure)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		c.SetCookie(cookie)
	}
}

// CookieValue returns the named cookie's value or "".
func CookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
